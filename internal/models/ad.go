package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Platform 广告平台
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformTikTok Platform = "tiktok"
	PlatformGoogle Platform = "google"
)

const (
	// UnknownAdID 未提取到广告ID时的占位值
	UnknownAdID = "unknown"

	// WinningAdDays 超过该天数视为"获胜广告"
	WinningAdDays = 14

	// ConfidenceFullDays 置信度达到1.0所需的投放天数
	ConfidenceFullDays = 30

	dateLayout = "2006-01-02"
)

// AdIntelligence 单条广告的结构化情报
// days_active / is_winning_ad / confidence_score 为派生只读字段
type AdIntelligence struct {
	AdID        string
	Platform    Platform
	StartDate   time.Time // 仅日期部分有效 (UTC零点)
	CopyText    *string
	CreativeURL *string

	// now 计算派生字段使用的时钟
	now func() time.Time
}

// NewAdIntelligence 创建广告情报
// start_date 晚于今天时返回 ErrFutureStartDate
func NewAdIntelligence(adID string, platform Platform, startDate time.Time, copyText, creativeURL *string) (*AdIntelligence, error) {
	return newAdIntelligence(adID, platform, startDate, copyText, creativeURL, time.Now)
}

// NewAdIntelligenceAt 与 NewAdIntelligence 相同,但使用指定时钟
func NewAdIntelligenceAt(adID string, platform Platform, startDate time.Time, copyText, creativeURL *string, now func() time.Time) (*AdIntelligence, error) {
	return newAdIntelligence(adID, platform, startDate, copyText, creativeURL, now)
}

func newAdIntelligence(adID string, platform Platform, startDate time.Time, copyText, creativeURL *string, now func() time.Time) (*AdIntelligence, error) {
	if now == nil {
		now = time.Now
	}
	start := TruncateDate(startDate)
	if start.After(TruncateDate(now())) {
		return nil, fmt.Errorf("%w: %s", ErrFutureStartDate, start.Format(dateLayout))
	}

	return &AdIntelligence{
		AdID:        adID,
		Platform:    platform,
		StartDate:   start,
		CopyText:    copyText,
		CreativeURL: creativeURL,
		now:         now,
	}, nil
}

// TruncateDate 截断为UTC日期
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysActive 投放天数 = max(0, 今天 - start_date)
func (a *AdIntelligence) DaysActive() int {
	now := a.now
	if now == nil {
		now = time.Now
	}
	days := int(TruncateDate(now()).Sub(a.StartDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// IsWinningAd 投放天数超过14天
func (a *AdIntelligence) IsWinningAd() bool {
	return a.DaysActive() > WinningAdDays
}

// ConfidenceScore 置信度 = clamp(days_active / 30, 0, 1)
func (a *AdIntelligence) ConfidenceScore() float64 {
	return ConfidenceForDays(a.DaysActive())
}

// ConfidenceForDays 根据投放天数计算置信度
func ConfidenceForDays(days int) float64 {
	if days <= 0 {
		return 0
	}
	score := float64(days) / ConfidenceFullDays
	if score > 1 {
		return 1
	}
	return score
}

// adIntelligenceJSON 序列化视图 (包含派生字段)
type adIntelligenceJSON struct {
	AdID            string   `json:"ad_id" yaml:"ad_id"`
	Platform        Platform `json:"platform" yaml:"platform"`
	StartDate       string   `json:"start_date" yaml:"start_date"`
	CopyText        *string  `json:"copy_text" yaml:"copy_text"`
	CreativeURL     *string  `json:"creative_url" yaml:"creative_url"`
	DaysActive      int      `json:"days_active" yaml:"days_active"`
	IsWinningAd     bool     `json:"is_winning_ad" yaml:"is_winning_ad"`
	ConfidenceScore float64  `json:"confidence_score" yaml:"confidence_score"`
}

func (a *AdIntelligence) view() adIntelligenceJSON {
	return adIntelligenceJSON{
		AdID:            a.AdID,
		Platform:        a.Platform,
		StartDate:       a.StartDate.Format(dateLayout),
		CopyText:        a.CopyText,
		CreativeURL:     a.CreativeURL,
		DaysActive:      a.DaysActive(),
		IsWinningAd:     a.IsWinningAd(),
		ConfidenceScore: a.ConfidenceScore(),
	}
}

// MarshalJSON 输出包含派生字段的JSON
func (a *AdIntelligence) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.view())
}

// MarshalYAML 输出包含派生字段的YAML
func (a *AdIntelligence) MarshalYAML() (interface{}, error) {
	return a.view(), nil
}
