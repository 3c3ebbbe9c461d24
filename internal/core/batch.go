package core

import (
	"context"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/crawlers"
	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// BatchRunner 批量抓取器
type BatchRunner struct {
	engine        *Engine
	batchDelay    time.Duration
	continueOnErr bool
	showProgress  bool
	sleep         crawlers.Sleeper
}

// BatchResult 单个URL的抓取结果
type BatchResult struct {
	URL         string
	Success     bool
	Duplicate   bool
	Record      *models.NormalizedRecord // 重复或失败时为nil
	Error       error
	ProcessedAt time.Time
	Duration    float64
}

// BatchSummary 批量抓取摘要
type BatchSummary struct {
	Task          *models.BatchScrapeTask
	TotalDuration float64
	Results       []BatchResult
	Report        *models.ScrapeReport
}

// NewBatchRunner 创建批量抓取器
func NewBatchRunner(engine *Engine, batchDelay time.Duration, continueOnErr, showProgress bool) *BatchRunner {
	return &BatchRunner{
		engine:        engine,
		batchDelay:    batchDelay,
		continueOnErr: continueOnErr,
		showProgress:  showProgress,
		sleep:         crawlers.SleepContext,
	}
}

// RunBatch 依次抓取URL列表
// continueOnErr为false时遇到第一个失败即停止; ctx取消时停止并返回已完成部分
func (br *BatchRunner) RunBatch(ctx context.Context, task *models.BatchScrapeTask, urls []string) *BatchSummary {
	utils.Infof("🚀 开始批量抓取: %d个URL, 爬虫: %s", len(urls), task.Spider)

	startTime := time.Now()
	task.StartedAt = &startTime
	task.Status = models.TaskStatusRunning
	task.TotalURLs = len(urls)

	summary := &BatchSummary{
		Task:    task,
		Results: make([]BatchResult, 0, len(urls)),
		Report:  models.NewScrapeReport(task.Spider, startTime),
	}

	var bar *progressbar.ProgressBar
	if br.showProgress {
		bar = utils.NewProgressBar(len(urls), "抓取中")
	}

	for i, targetURL := range urls {
		result := br.runSingle(ctx, task.Spider, targetURL)
		summary.Results = append(summary.Results, result)
		if bar != nil {
			_ = bar.Add(1)
		}

		switch {
		case result.Success && result.Duplicate:
			task.SuccessfulURLs++
			task.DuplicateURLs++
		case result.Success:
			task.SuccessfulURLs++
			if result.Record != nil {
				summary.Report.Records = append(summary.Report.Records, *result.Record)
			}
		default:
			task.FailedURLs++
			summary.Report.AddFailure(targetURL, result.Error)
			utils.Errorf("❌ 抓取失败 [%s]: %v", targetURL, result.Error)
		}

		if ctx.Err() != nil {
			utils.Warn("批量抓取已取消")
			break
		}
		if !result.Success && !br.continueOnErr {
			utils.Warn("批量抓取中止 (--continue-on-error=false)")
			break
		}

		if i < len(urls)-1 && br.batchDelay > 0 {
			utils.Debugf("等待 %.0f 秒后处理下一个URL...", br.batchDelay.Seconds())
			if err := br.sleep(ctx, br.batchDelay); err != nil {
				utils.Warn("批量抓取已取消")
				break
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	finished := time.Now()
	task.CompletedAt = &finished
	switch {
	case ctx.Err() != nil:
		task.Status = models.TaskStatusCancelled
	case task.FailedURLs > 0 && task.SuccessfulURLs == 0:
		task.Status = models.TaskStatusFailed
	default:
		task.Status = models.TaskStatusCompleted
	}

	summary.TotalDuration = finished.Sub(startTime).Seconds()
	summary.Report.Stats = models.ScrapeStats{
		Runs:       len(summary.Results),
		Succeeded:  task.SuccessfulURLs,
		Failed:     task.FailedURLs,
		Duplicates: task.DuplicateURLs,
		Stored:     task.SuccessfulURLs - task.DuplicateURLs,
		Duration:   summary.TotalDuration,
	}
	summary.Report.Finish(finished)

	br.printSummary(summary)
	return summary
}

// runSingle 抓取单个URL
func (br *BatchRunner) runSingle(ctx context.Context, spider, targetURL string) BatchResult {
	result := BatchResult{
		URL:         targetURL,
		ProcessedAt: time.Now(),
	}

	run, err := br.engine.Run(ctx, spider, targetURL)
	result.Duration = time.Since(result.ProcessedAt).Seconds()
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	result.Duplicate = run.Duplicate
	result.Record = run.Normalized
	return result
}

// printSummary 打印批量抓取摘要
func (br *BatchRunner) printSummary(summary *BatchSummary) {
	task := summary.Task
	utils.Info("==================================================")
	utils.Info("📊 批量抓取摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", task.TotalURLs)
	utils.Infof("✅ 成功: %d (重复 %d)", task.SuccessfulURLs, task.DuplicateURLs)
	utils.Infof("❌ 失败: %d", task.FailedURLs)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	if task.FailedURLs > 0 {
		utils.Warn("失败的URL:")
		for _, result := range summary.Results {
			if !result.Success {
				utils.Warnf("  - %s: %v", result.URL, result.Error)
			}
		}
	}
}
