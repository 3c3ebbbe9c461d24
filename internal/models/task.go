package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
	TaskStatusCancelled TaskStatus = "cancelled" // 已取消
)

// SessionConfig HttpSession的重试/延迟配置
type SessionConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout"`                   // 单次请求超时 (默认:10s)
	MaxRetries     int           `mapstructure:"max_retries" json:"max_retries"`           // 最大尝试次数 (默认:3)
	MinDelay       time.Duration `mapstructure:"min_delay" json:"min_delay"`               // 请求前随机延迟下限 (默认:1s)
	MaxDelay       time.Duration `mapstructure:"max_delay" json:"max_delay"`               // 请求前随机延迟上限 (默认:3s)
	SettleMinDelay time.Duration `mapstructure:"settle_min_delay" json:"settle_min_delay"` // 成功后延迟下限 (默认:300ms)
	SettleMaxDelay time.Duration `mapstructure:"settle_max_delay" json:"settle_max_delay"` // 成功后延迟上限 (默认:700ms)
	BackoffBase    float64       `mapstructure:"backoff_base" json:"backoff_base"`         // 退避底数,单位秒 (默认:2)
	BackoffCap     time.Duration `mapstructure:"backoff_cap" json:"backoff_cap"`           // 退避上限 (默认:60s)
	JitterMax      time.Duration `mapstructure:"jitter_max" json:"jitter_max"`             // 抖动上限 (默认:2s)
	RateLimit      float64       `mapstructure:"rate_limit" json:"rate_limit"`             // 每秒请求数, 0表示不限速
	Burst          int           `mapstructure:"burst" json:"burst"`                       // 令牌桶容量
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		MinDelay:       1 * time.Second,
		MaxDelay:       3 * time.Second,
		SettleMinDelay: 300 * time.Millisecond,
		SettleMaxDelay: 700 * time.Millisecond,
		BackoffBase:    2,
		BackoffCap:     60 * time.Second,
		JitterMax:      2 * time.Second,
		Burst:          1,
	}
}

// Validate 验证配置
func (c *SessionConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("超时时间必须大于0")
	}
	if c.MaxRetries < 1 || c.MaxRetries > 20 {
		return fmt.Errorf("最大尝试次数必须在1-20之间")
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("请求延迟范围无效: [%s, %s]", c.MinDelay, c.MaxDelay)
	}
	if c.SettleMinDelay < 0 || c.SettleMaxDelay < c.SettleMinDelay {
		return fmt.Errorf("成功延迟范围无效: [%s, %s]", c.SettleMinDelay, c.SettleMaxDelay)
	}
	if c.BackoffBase < 1 {
		return fmt.Errorf("退避底数必须大于等于1")
	}
	if c.BackoffCap <= 0 {
		return fmt.Errorf("退避上限必须大于0")
	}
	if c.JitterMax < 0 {
		return fmt.Errorf("抖动上限不能为负数")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("限速不能为负数")
	}
	return nil
}

// ScrapeStats 抓取统计
type ScrapeStats struct {
	Runs       int     `json:"runs" yaml:"runs"`             // 执行次数
	Succeeded  int     `json:"succeeded" yaml:"succeeded"`   // 抓取成功次数
	Failed     int     `json:"failed" yaml:"failed"`         // 抓取失败次数
	Duplicates int     `json:"duplicates" yaml:"duplicates"` // 被去重丢弃的记录数
	Stored     int     `json:"stored" yaml:"stored"`         // 写入结果存储的记录数
	Duration   float64 `json:"duration" yaml:"duration"`     // 累计耗时(秒)
}

// Add 累加另一份统计
func (s *ScrapeStats) Add(other ScrapeStats) {
	s.Runs += other.Runs
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Duplicates += other.Duplicates
	s.Stored += other.Stored
	s.Duration += other.Duration
}

// ScheduleTask 定时抓取任务
type ScheduleTask struct {
	ID        string        `json:"id"`
	Spider    string        `json:"spider"`
	URL       string        `json:"url"`
	Interval  time.Duration `json:"interval"`
	CreatedAt time.Time     `json:"created_at"`
	Status    TaskStatus    `json:"status"`
}

// NewScheduleTask 创建定时任务
func NewScheduleTask(spider, targetURL string, interval time.Duration) (*ScheduleTask, error) {
	if spider == "" {
		return nil, fmt.Errorf("爬虫名称不能为空")
	}
	if err := ValidateURL(targetURL); err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("调度间隔必须大于0")
	}

	return &ScheduleTask{
		ID:        generateID(),
		Spider:    spider,
		URL:       targetURL,
		Interval:  interval,
		CreatedAt: time.Now(),
		Status:    TaskStatusPending,
	}, nil
}

// BatchScrapeTask 批量抓取任务
type BatchScrapeTask struct {
	// 基本信息
	ID          string     `json:"id"`
	URLsFile    string     `json:"urls_file"` // URL列表文件路径
	Spider      string     `json:"spider"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// 配置
	BatchDelay      int  `json:"batch_delay"`       // URL之间延迟(秒)
	ContinueOnError bool `json:"continue_on_error"` // 遇到错误继续

	// 状态
	Status TaskStatus `json:"status"`

	// 统计
	TotalURLs      int `json:"total_urls"`
	SuccessfulURLs int `json:"successful_urls"`
	FailedURLs     int `json:"failed_urls"`
	DuplicateURLs  int `json:"duplicate_urls"`
}

// NewBatchScrapeTask 创建批量任务
func NewBatchScrapeTask(urlsFile, spider string, batchDelay int, continueOnError bool) *BatchScrapeTask {
	return &BatchScrapeTask{
		ID:              generateID(),
		URLsFile:        urlsFile,
		Spider:          spider,
		CreatedAt:       time.Now(),
		BatchDelay:      batchDelay,
		ContinueOnError: continueOnError,
		Status:          TaskStatusPending,
	}
}

// ToJSON 序列化为JSON
func (t *BatchScrapeTask) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
