// Package intelligence 根据广告情报计算营销指标
// 包括文案类型识别、互动率、基准评分和模式标记
package intelligence

import (
	"strings"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// CreativeType 广告文案类型
type CreativeType string

const (
	CreativeUnknown        CreativeType = "unknown"
	CreativeDirectResponse CreativeType = "direct_response"
	CreativeBranding       CreativeType = "branding"
	CreativeMixed          CreativeType = "mixed"
)

const (
	// DefaultBenchmark 平台平均互动率
	DefaultBenchmark = 0.04

	// LongRunningDays 投放天数达到该值视为长期投放
	LongRunningDays = 14

	// winningEngagement 互动率超过该值视为获胜模式
	winningEngagement = 0.05
)

var (
	directResponseKeywords = []string{
		"buy", "shop", "order", "discount",
		"limited", "offer", "sale", "today",
		"now", "free shipping",
	}
	brandingKeywords = []string{
		"story", "mission", "community",
		"brand", "values", "experience",
		"vision", "lifestyle",
	}
)

// Metrics 广告互动原始数据
type Metrics struct {
	Likes       int `json:"likes" yaml:"likes"`
	Comments    int `json:"comments" yaml:"comments"`
	Shares      int `json:"shares" yaml:"shares"`
	Impressions int `json:"impressions" yaml:"impressions"`
}

// EngagementRate (likes + comments + shares) / impressions, 曝光为0时返回0
func (m Metrics) EngagementRate() float64 {
	if m.Impressions <= 0 {
		return 0
	}
	return float64(m.Likes+m.Comments+m.Shares) / float64(m.Impressions)
}

// InteractionRatio comments / impressions, 曝光为0时返回0
func (m Metrics) InteractionRatio() float64 {
	if m.Impressions <= 0 {
		return 0
	}
	return float64(m.Comments) / float64(m.Impressions)
}

// Insight 单条广告的营销情报
type Insight struct {
	AdID                  string       `json:"ad_id" yaml:"ad_id"`
	CreativeType          CreativeType `json:"creative_type" yaml:"creative_type"`
	EngagementRate        float64      `json:"engagement_rate" yaml:"engagement_rate"`
	InteractionRatio      float64      `json:"interaction_ratio" yaml:"interaction_ratio"`
	CreativeScore         float64      `json:"creative_score" yaml:"creative_score"`
	BenchmarkScore        float64      `json:"benchmark_score" yaml:"benchmark_score"`
	IntelligenceScore     float64      `json:"intelligence_score" yaml:"intelligence_score"`
	HighEngagementPattern bool         `json:"high_engagement_pattern" yaml:"high_engagement_pattern"`
	LongRunningPattern    bool         `json:"long_running_pattern" yaml:"long_running_pattern"`
	WinningPatternFlag    bool         `json:"winning_pattern_flag" yaml:"winning_pattern_flag"`
}

// Analyzer 广告情报分析器
type Analyzer struct {
	benchmark float64
}

// NewAnalyzer 创建分析器
// benchmark<=0 时使用 DefaultBenchmark
func NewAnalyzer(benchmark float64) *Analyzer {
	if benchmark <= 0 {
		benchmark = DefaultBenchmark
	}
	return &Analyzer{benchmark: benchmark}
}

// Benchmark 当前使用的平台平均互动率
func (a *Analyzer) Benchmark() float64 {
	return a.benchmark
}

// Analyze 计算单条广告的情报
// ad为nil时返回nil
func (a *Analyzer) Analyze(ad *models.AdIntelligence, metrics Metrics) *Insight {
	if ad == nil {
		return nil
	}

	engagement := metrics.EngagementRate()
	interaction := metrics.InteractionRatio()
	creativeScore := clamp(engagement*0.6+interaction*0.4, 0, 1)
	benchmarkScore := a.benchmarkScore(engagement)

	copyText := ""
	if ad.CopyText != nil {
		copyText = *ad.CopyText
	}

	return &Insight{
		AdID:                  ad.AdID,
		CreativeType:          ClassifyCreative(copyText),
		EngagementRate:        engagement,
		InteractionRatio:      interaction,
		CreativeScore:         creativeScore,
		BenchmarkScore:        benchmarkScore,
		IntelligenceScore:     (creativeScore + benchmarkScore) / 2,
		HighEngagementPattern: engagement >= a.benchmark,
		LongRunningPattern:    ad.DaysActive() >= LongRunningDays,
		WinningPatternFlag:    engagement > winningEngagement,
	}
}

// benchmarkScore 互动率与基准比较: 达到基准1.0, 达到一半0.5, 否则0.1
func (a *Analyzer) benchmarkScore(engagement float64) float64 {
	switch {
	case engagement >= a.benchmark:
		return 1.0
	case engagement >= a.benchmark*0.5:
		return 0.5
	default:
		return 0.1
	}
}

// ClassifyCreative 按关键词出现次数判断文案类型
// 空文案为unknown, 两类次数相同为mixed
func ClassifyCreative(copyText string) CreativeType {
	if copyText == "" {
		return CreativeUnknown
	}
	text := strings.ToLower(copyText)
	direct := countKeywords(text, directResponseKeywords)
	branding := countKeywords(text, brandingKeywords)
	switch {
	case direct > branding:
		return CreativeDirectResponse
	case branding > direct:
		return CreativeBranding
	default:
		return CreativeMixed
	}
}

func countKeywords(text string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		total += strings.Count(text, kw)
	}
	return total
}

// WinningRatio 高互动广告所占比例, 空列表返回0
func WinningRatio(insights []Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	winning := 0
	for _, in := range insights {
		if in.HighEngagementPattern {
			winning++
		}
	}
	return float64(winning) / float64(len(insights))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
