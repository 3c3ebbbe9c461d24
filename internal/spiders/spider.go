// Package spiders 定义爬虫契约与内置爬虫
//
// 每个爬虫只做两件事: Run 通过 Fetcher 获取页面, Parse 把HTML转成结构化数据。
// Parse 从不返回错误,缺失或损坏的数据一律降级为 nil 或占位值;
// Run 中的抓取错误原样返回给调用方。
package spiders

import (
	"context"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// Fetcher 页面获取接口 (由 crawlers.Session 实现)
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Spider 爬虫契约
type Spider interface {
	// Source 输出记录的来源标识
	Source() string

	// Run 抓取并解析页面
	Run(ctx context.Context, url string) (*models.SpiderRecord, error)

	// Parse 解析HTML,不会失败
	Parse(html string) map[string]any
}

// Constructor 爬虫构造函数
type Constructor func(fetcher Fetcher) Spider

// runSpider Run的通用实现: Parse(Fetch(url))
func runSpider(ctx context.Context, s Spider, fetcher Fetcher, url string) (*models.SpiderRecord, error) {
	html, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return &models.SpiderRecord{
		Source: s.Source(),
		URL:    url,
		Data:   s.Parse(html),
	}, nil
}

// optional 空指针转为nil接口值,避免序列化时出现类型化nil
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
