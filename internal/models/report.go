package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ScrapeReport 抓取报告
type ScrapeReport struct {
	// 任务信息
	ID     string `json:"id" yaml:"id"`
	Spider string `json:"spider" yaml:"spider"`

	// 时间信息
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Duration   float64   `json:"duration" yaml:"duration"` // 秒

	// 统计信息
	Stats ScrapeStats `json:"stats" yaml:"stats"`

	// 结果
	Records []NormalizedRecord `json:"records" yaml:"records"`
	Errors  []FailedURLInfo    `json:"errors" yaml:"errors"`
}

// FailedURLInfo 失败URL信息
type FailedURLInfo struct {
	URL        string `json:"url" yaml:"url"`
	ErrorType  string `json:"error_type" yaml:"error_type"` // network, blocked, transient, fatal, unknown
	ErrorMsg   string `json:"error_msg" yaml:"error_msg"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
}

// NewScrapeReport 创建报告
func NewScrapeReport(spider string, startedAt time.Time) *ScrapeReport {
	return &ScrapeReport{
		ID:        generateID(),
		Spider:    spider,
		StartedAt: startedAt,
		Records:   []NormalizedRecord{},
		Errors:    []FailedURLInfo{},
	}
}

// Finish 记录结束时间
func (r *ScrapeReport) Finish(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	r.Duration = finishedAt.Sub(r.StartedAt).Seconds()
}

// AddFailure 按错误类型记录失败URL
func (r *ScrapeReport) AddFailure(url string, err error) {
	r.Errors = append(r.Errors, NewFailedURLInfo(url, err))
}

// NewFailedURLInfo 根据错误类型构造失败信息
func NewFailedURLInfo(url string, err error) FailedURLInfo {
	info := FailedURLInfo{URL: url, ErrorType: "unknown", ErrorMsg: err.Error()}

	var statusErr *HTTPStatusError
	var netErr *NetworkError
	switch {
	case errors.As(err, &statusErr):
		info.ErrorType = string(statusErr.Kind)
		info.StatusCode = statusErr.StatusCode
	case errors.As(err, &netErr):
		info.ErrorType = "network"
	}
	return info
}

// ToJSON 序列化为JSON
func (r *ScrapeReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *ScrapeReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
