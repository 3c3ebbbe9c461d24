package main

import (
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/core"
	"github.com/RecoveryAshes/AdSpider/internal/crawlers"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/spf13/cobra"
)

var scheduleInterval time.Duration

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "按固定间隔重复抓取一个URL,直到收到中断信号",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateFlags(spiderName, targetURL, 0); err != nil {
			return err
		}
		if targetURL == "" {
			return cmd.Help()
		}
		url, err := NormalizeURL(targetURL)
		if err != nil {
			return err
		}
		interval := scheduleInterval
		if interval <= 0 {
			interval = appConfig.Scheduler.Interval
		}

		ctx, cancel := signalContext()
		defer cancel()

		scraper, err := newScheduledScraper()
		if err != nil {
			return err
		}

		if _, err := scraper.Start(ctx, spiderName, url, interval); err != nil {
			return err
		}

		<-ctx.Done()
		scraper.StopAll()
		utils.Info("✨ 定时抓取已停止")
		return nil
	},
}

// newScheduledScraper 按配置创建定时抓取管理器
func newScheduledScraper() (*core.ScheduledScraper, error) {
	engine, _, err := newEngine()
	if err != nil {
		return nil, err
	}

	policy := core.FlushPolicy{MaxStoredRecords: appConfig.Scheduler.MaxStoredRecords}
	if appConfig.Scheduler.MemoryThreshold > 0 {
		policy.Monitor = crawlers.NewResourceMonitor(appConfig.Scheduler.MemoryThreshold, nil)
	}

	reporter := utils.NewReporter(appConfig.Output.BaseDir, appConfig.Output.Format)
	return core.NewScheduledScraper(engine, core.NewScheduler(nil), reporter, policy), nil
}

func init() {
	scheduleCmd.Flags().StringVarP(&spiderName, "spider", "s", "title", "爬虫名称 (见 adspider spiders)")
	scheduleCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标URL")
	scheduleCmd.Flags().DurationVar(&scheduleInterval, "interval", 0, "抓取间隔 (默认使用 scheduler.interval)")
}
