package spiders

import (
	"context"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/extract"
	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// MetaSpider 从页面内嵌JSON块中提取广告情报
// 同一实现服务于 meta / tiktok / google 三个平台,只有平台标识不同
type MetaSpider struct {
	fetcher  Fetcher
	platform models.Platform
	now      func() time.Time
}

// MetaOption MetaSpider选项
type MetaOption func(*MetaSpider)

// WithClock 指定计算"今天"使用的时钟
func WithClock(now func() time.Time) MetaOption {
	return func(s *MetaSpider) {
		s.now = now
	}
}

// NewMetaSpider 创建广告爬虫
func NewMetaSpider(fetcher Fetcher, platform models.Platform, opts ...MetaOption) *MetaSpider {
	s := &MetaSpider{
		fetcher:  fetcher,
		platform: platform,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source 来源标识, 如 meta_spider / tiktok_spider
func (s *MetaSpider) Source() string {
	return string(s.platform) + "_spider"
}

// Platform 平台
func (s *MetaSpider) Platform() models.Platform {
	return s.platform
}

// Run 抓取并解析页面
func (s *MetaSpider) Run(ctx context.Context, url string) (*models.SpiderRecord, error) {
	return runSpider(ctx, s, s.fetcher, url)
}

// Parse 返回 {ad_intelligence, json_blocks_found}
// ad_intelligence 在开始日期晚于今天时为nil
func (s *MetaSpider) Parse(html string) map[string]any {
	blocks := extract.ExtractBlocks(html)

	var ad any
	if intel := extract.MapAdIntelligence(blocks, s.platform, s.now); intel != nil {
		ad = intel
	}

	return map[string]any{
		"ad_intelligence":   ad,
		"json_blocks_found": len(blocks),
	}
}
