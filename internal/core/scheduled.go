package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/crawlers"
	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

// ErrScheduleNotFound 定时任务不存在
var ErrScheduleNotFound = errors.New("定时任务不存在")

// FlushPolicy 结果存储落盘策略
type FlushPolicy struct {
	MaxStoredRecords int                       // 存储记录数超过该值时落盘, 0表示不限
	Monitor          *crawlers.ResourceMonitor // 内存压力过高时落盘, nil表示关闭
}

// ScheduledScraper 定时抓取管理器
// 每个定时任务周期性调用 Engine.Run; 抓取错误只记录,不会终止任务
type ScheduledScraper struct {
	engine    *Engine
	scheduler *Scheduler
	reporter  *utils.Reporter
	policy    FlushPolicy

	mu      sync.Mutex
	entries map[string]*scheduleEntry

	// 距上次落盘的统计与失败列表
	pendingMu    sync.Mutex
	pendingStats models.ScrapeStats
	pendingErrs  []models.FailedURLInfo
	pendingSince time.Time
}

type scheduleEntry struct {
	info *models.ScheduleTask
	task *Task
}

// NewScheduledScraper 创建定时抓取管理器
// reporter为nil时落盘只清空存储,不写文件
func NewScheduledScraper(engine *Engine, scheduler *Scheduler, reporter *utils.Reporter, policy FlushPolicy) *ScheduledScraper {
	if scheduler == nil {
		scheduler = NewScheduler(nil)
	}
	return &ScheduledScraper{
		engine:       engine,
		scheduler:    scheduler,
		reporter:     reporter,
		policy:       policy,
		entries:      make(map[string]*scheduleEntry),
		pendingSince: time.Now(),
	}
}

// Engine 定时任务使用的引擎
func (s *ScheduledScraper) Engine() *Engine {
	return s.engine
}

// Start 注册并启动定时任务
func (s *ScheduledScraper) Start(ctx context.Context, spiderName, url string, interval time.Duration) (*models.ScheduleTask, error) {
	if _, err := s.engine.Registry().GetOrFail(spiderName); err != nil {
		return nil, err
	}

	info, err := models.NewScheduleTask(spiderName, url, interval)
	if err != nil {
		return nil, err
	}
	info.Status = models.TaskStatusRunning

	entry := &scheduleEntry{info: info}
	entry.task = s.scheduler.Start(ctx, interval, func(ctx context.Context) {
		s.runOnce(ctx, info)
	})

	s.mu.Lock()
	s.entries[info.ID] = entry
	s.mu.Unlock()

	utils.Infof("⏰ 定时任务已启动 [%s]: %s 每%s抓取 %s", info.ID, spiderName, interval, url)

	snapshot := *info
	return &snapshot, nil
}

// runOnce 单轮抓取
func (s *ScheduledScraper) runOnce(ctx context.Context, info *models.ScheduleTask) {
	result, err := s.engine.Run(ctx, info.Spider, info.URL)

	s.pendingMu.Lock()
	switch {
	case err != nil && ctx.Err() != nil:
		// 任务被取消,不计入失败
		s.pendingMu.Unlock()
		return
	case err != nil:
		s.pendingStats.Add(models.ScrapeStats{Runs: 1, Failed: 1})
		s.pendingErrs = append(s.pendingErrs, models.NewFailedURLInfo(info.URL, err))
	case result.Duplicate:
		s.pendingStats.Add(models.ScrapeStats{Runs: 1, Succeeded: 1, Duplicates: 1, Duration: result.Duration.Seconds()})
	default:
		s.pendingStats.Add(models.ScrapeStats{Runs: 1, Succeeded: 1, Stored: 1, Duration: result.Duration.Seconds()})
	}
	s.pendingMu.Unlock()

	if err != nil {
		utils.Warnf("定时抓取失败 [%s] %s: %v", info.ID, info.URL, err)
	}

	if reason := s.flushReason(); reason != "" {
		if _, err := s.Flush(reason); err != nil {
			utils.Errorf("结果落盘失败: %v", err)
		}
	}
}

// flushReason 返回需要落盘的原因, 不需要时为空
func (s *ScheduledScraper) flushReason() string {
	store := s.engine.Store()
	if s.policy.MaxStoredRecords > 0 && store.Len() >= s.policy.MaxStoredRecords {
		return fmt.Sprintf("记录数达到上限(%d)", s.policy.MaxStoredRecords)
	}
	if s.policy.Monitor != nil && store.Len() > 0 && s.policy.Monitor.UnderPressure() {
		status := s.policy.Monitor.GetMemoryStatus()
		return fmt.Sprintf("内存使用率%.1f%%超过阈值", status.UsedPercent)
	}
	return ""
}

// Flush 把结果存储写入报告文件并清空, 返回报告路径
// 没有待写内容时返回空路径
func (s *ScheduledScraper) Flush(reason string) (string, error) {
	records := s.engine.Store().Drain()

	s.pendingMu.Lock()
	stats := s.pendingStats
	failures := s.pendingErrs
	startedAt := s.pendingSince
	s.pendingStats = models.ScrapeStats{}
	s.pendingErrs = nil
	s.pendingSince = time.Now()
	s.pendingMu.Unlock()

	if len(records) == 0 && len(failures) == 0 {
		return "", nil
	}

	report := models.NewScrapeReport("scheduled", startedAt)
	report.Records = records
	report.Stats = stats
	if failures != nil {
		report.Errors = failures
	}
	report.Finish(time.Now())

	if s.reporter == nil {
		utils.Infof("结果存储已清空 (%s): %d条记录", reason, len(records))
		return "", nil
	}

	path, err := s.reporter.GenerateReport(report)
	if err != nil {
		return "", err
	}
	utils.Infof("💾 结果已落盘 (%s): %d条记录 -> %s", reason, len(records), path)
	return path, nil
}

// Stop 停止定时任务
func (s *ScheduledScraper) Stop(id string) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}

	entry.task.Stop()
	utils.Infof("定时任务已停止 [%s], 共执行%d次", id, entry.task.Runs())
	return nil
}

// StopAll 停止全部定时任务并落盘剩余结果
func (s *ScheduledScraper) StopAll() {
	for _, task := range s.List() {
		if err := s.Stop(task.ID); err != nil && !errors.Is(err, ErrScheduleNotFound) {
			utils.Warnf("停止定时任务失败: %v", err)
		}
	}
	if _, err := s.Flush("停止"); err != nil {
		utils.Errorf("结果落盘失败: %v", err)
	}
}

// List 按创建时间列出运行中的定时任务
func (s *ScheduledScraper) List() []models.ScheduleTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]models.ScheduleTask, 0, len(s.entries))
	for _, entry := range s.entries {
		tasks = append(tasks, *entry.info)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// Runs 指定任务已执行次数
func (s *ScheduledScraper) Runs(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	return entry.task.Runs(), nil
}
