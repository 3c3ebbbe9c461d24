package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/core"
	"github.com/RecoveryAshes/AdSpider/internal/crawlers"
	"github.com/RecoveryAshes/AdSpider/internal/spiders"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	envFile    string
	verbose    bool
	logLevel   string
	outputDir  string
	format     string
	maxRetries int
	timeout    time.Duration

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	headersFile    string   // 头部配置文件
	validateConfig bool     // 验证配置文件
)

// appConfig 由PersistentPreRunE加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "adspider",
	Short: "具备反爬虫韧性的多来源抓取引擎",
	Long: `AdSpider - 多来源网页与广告情报抓取引擎

支持:
  • User-Agent轮换、随机延迟与指数退避重试
  • 从内嵌JSON块提取广告情报 (meta/tiktok/google)
  • 结果去重与统一格式
  • 定时抓取与HTTP接口
  • 批量URL处理
  • 自定义HTTP请求头

示例:
  adspider scrape -s title -u https://example.com
  adspider scrape -s meta -f urls.txt --batch-delay 2
  adspider schedule -s meta -u https://example.com/ad --interval 10m
  adspider serve --addr :8080
  adspider --validate-config -H "Referer: https://example.com"

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 先于配置加载,使 ADSPIDER_ 环境变量生效
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载环境变量文件失败: %w", err)
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(logLevel, outputDir, format, maxRetries, timeout, headersFile)
		if verbose && logLevel == "" {
			config.Logging.Level = "debug"
		}
		if err := config.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return runValidateConfig()
		}
		return cmd.Help()
	},
}

// runValidateConfig 验证头部配置并输出脱敏后的有效头部
func runValidateConfig() error {
	utils.Info("🔍 验证HTTP头部配置...")
	headerManager, err := core.NewHeaderManager(appConfig.Headers.ConfigFile, headers)
	if err != nil {
		return fmt.Errorf("解析命令行头部失败: %w", err)
	}
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	utils.Infof("User-Agent轮换池: %d个", len(headerManager.UserAgents()))
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("AdSpider %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

var spidersCmd = &cobra.Command{
	Use:   "spiders",
	Short: "列出已注册的爬虫",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range spiders.DefaultRegistry().Names() {
			fmt.Println(name)
		}
	},
}

// newEngine 按配置创建会话与引擎
func newEngine() (*core.Engine, *crawlers.Session, error) {
	headerManager, err := core.NewHeaderManager(appConfig.Headers.ConfigFile, headers)
	if err != nil {
		return nil, nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.LoadConfig(); err != nil {
		return nil, nil, fmt.Errorf("加载HTTP头部配置失败: %w", err)
	}
	utils.Debugf("有效HTTP头部: %v", headerManager.GetSafeHeaders())

	session, err := crawlers.NewSession(appConfig.Session, headerManager)
	if err != nil {
		return nil, nil, err
	}

	return core.NewEngine(spiders.DefaultRegistry(), session, nil), session, nil
}

// signalContext 收到 Ctrl+C / SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在优雅关闭...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "环境变量文件")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "输出目录")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "报告格式 (json|yaml)")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", 0, "最大尝试次数")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "单次请求超时")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-file", "", "头部配置文件路径 (默认 configs/headers.yaml)")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	rootCmd.AddCommand(versionCmd, spidersCmd, scrapeCmd, scheduleCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
