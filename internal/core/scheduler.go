package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

// Clock 调度器使用的时钟
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// realClock 系统时钟
type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Job 周期任务
type Job func(ctx context.Context)

// Scheduler 固定间隔执行任务
// 每轮: 执行job, 然后等待interval; 不做时钟对齐, job超时时下一轮紧接着开始
type Scheduler struct {
	clock Clock
}

// NewScheduler 创建调度器, clock为nil时使用系统时钟
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	return &Scheduler{clock: clock}
}

// Task 可取消的周期任务句柄
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	runs   atomic.Int64
}

// Start 在后台goroutine中启动周期任务
// ctx取消或调用 Task.Stop 后,在当前job结束或等待中断时退出
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, job Job) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(task.done)
		for {
			if ctx.Err() != nil {
				return
			}

			task.runJob(ctx, job)

			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(interval):
			}
		}
	}()

	return task
}

// runJob 执行一次job, panic被记录后不影响后续轮次
func (t *Task) runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("定时任务异常: %v", r)
		}
		t.runs.Add(1)
	}()
	job(ctx)
}

// Stop 取消任务并等待goroutine退出
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done 任务退出后关闭
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Runs 已完成的执行次数
func (t *Task) Runs() int {
	return int(t.runs.Load())
}
