package pipeline

import (
	"strings"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// 各字段的候选键,按优先级排列
var (
	titleKeys       = []string{"title"}
	descriptionKeys = []string{"description", "meta_description"}
	urlKeys         = []string{"url", "source_url", "landing_url"}
)

// Normalizer 把各爬虫的输出映射到统一结构
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer 创建规范化器
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock 使用指定时钟的规范化器
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize data为nil时返回nil; 缺失字段为nil
func (n *Normalizer) Normalize(data map[string]any, source string) *models.NormalizedRecord {
	if data == nil {
		return nil
	}

	return &models.NormalizedRecord{
		Source:      source,
		Title:       lookupString(data, titleKeys),
		Description: lookupString(data, descriptionKeys),
		URL:         lookupString(data, urlKeys),
		FetchedAt:   n.now().UTC().Format(time.RFC3339Nano),
	}
}

// NormalizeRecord 规范化爬虫记录; data中没有URL时使用请求URL
func (n *Normalizer) NormalizeRecord(record *models.SpiderRecord) *models.NormalizedRecord {
	if record == nil {
		return nil
	}

	normalized := n.Normalize(record.Data, record.Source)
	if normalized != nil && normalized.URL == nil && record.URL != "" {
		url := record.URL
		normalized.URL = &url
	}
	return normalized
}

// lookupString 返回第一个非空字符串值
func lookupString(data map[string]any, keys []string) *string {
	for _, key := range keys {
		var s string
		switch v := data[key].(type) {
		case string:
			s = v
		case *string:
			if v == nil {
				continue
			}
			s = *v
		default:
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		return &s
	}
	return nil
}
