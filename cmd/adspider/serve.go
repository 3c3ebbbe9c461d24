package main

import (
	"github.com/RecoveryAshes/AdSpider/internal/api"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP接口",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = appConfig.Server.Addr
		}

		ctx, cancel := signalContext()
		defer cancel()

		scraper, err := newScheduledScraper()
		if err != nil {
			return err
		}
		defer scraper.StopAll()

		handler := api.NewHandler(scraper.Engine(), scraper)
		if err := api.Serve(ctx, addr, handler.Router()); err != nil {
			return err
		}

		utils.Info("✨ HTTP服务已关闭")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址 (默认使用 server.addr)")
}
