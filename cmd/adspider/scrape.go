package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/core"
	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/spf13/cobra"
)

// 抓取参数
var (
	spiderName      string
	targetURL       string
	urlFile         string
	batchDelay      int
	continueOnError bool
	noReport        bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "抓取单个URL或URL列表",
	RunE: func(cmd *cobra.Command, args []string) error {
		if targetURL == "" && urlFile == "" {
			return cmd.Help()
		}
		if err := ValidateFlags(spiderName, targetURL, batchDelay); err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		engine, _, err := newEngine()
		if err != nil {
			return err
		}
		if _, err := engine.Registry().GetOrFail(spiderName); err != nil {
			return err
		}
		reporter := utils.NewReporter(appConfig.Output.BaseDir, appConfig.Output.Format)

		if urlFile != "" {
			urls, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}

			task := models.NewBatchScrapeTask(urlFile, spiderName, batchDelay, continueOnError)
			runner := core.NewBatchRunner(engine, time.Duration(batchDelay)*time.Second, continueOnError, true)
			summary := runner.RunBatch(ctx, task, urls)

			if !noReport {
				if _, err := reporter.GenerateReport(summary.Report); err != nil {
					return fmt.Errorf("生成报告失败: %w", err)
				}
			}
			utils.Info("✨ 批量抓取任务完成!")
			return nil
		}

		url, err := NormalizeURL(targetURL)
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}

		startedAt := time.Now()
		result, err := engine.Run(ctx, spiderName, url)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化结果失败: %w", err)
		}
		fmt.Println(string(out))

		if in := result.Insight; in != nil {
			utils.Infof("📊 广告 %s: 文案类型=%s, 长期投放=%t, 情报评分=%.2f",
				in.AdID, in.CreativeType, in.LongRunningPattern, in.IntelligenceScore)
		}

		if !noReport && result.Normalized != nil {
			report := models.NewScrapeReport(spiderName, startedAt)
			report.Records = append(report.Records, *result.Normalized)
			report.Stats = engine.Stats()
			report.Finish(time.Now())
			if _, err := reporter.GenerateReport(report); err != nil {
				return fmt.Errorf("生成报告失败: %w", err)
			}
		}

		utils.Info("✨ 抓取完成!")
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&spiderName, "spider", "s", "title", "爬虫名称 (见 adspider spiders)")
	scrapeCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标URL (必需,除非使用 --url-file)")
	scrapeCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径")
	scrapeCmd.Flags().IntVar(&batchDelay, "batch-delay", 1, "批量处理URL间延迟(秒)")
	scrapeCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")
	scrapeCmd.Flags().BoolVar(&noReport, "no-report", false, "不生成报告文件")
}
