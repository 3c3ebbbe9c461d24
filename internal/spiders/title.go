package spiders

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// TitleSpider 提取 <title> 与 meta description
type TitleSpider struct {
	fetcher Fetcher
}

// NewTitleSpider 创建标题爬虫
func NewTitleSpider(fetcher Fetcher) *TitleSpider {
	return &TitleSpider{fetcher: fetcher}
}

// Source 来源标识
func (s *TitleSpider) Source() string {
	return "title_spider"
}

// Run 抓取并解析页面
func (s *TitleSpider) Run(ctx context.Context, url string) (*models.SpiderRecord, error) {
	return runSpider(ctx, s, s.fetcher, url)
}

// Parse 返回 {title, description}, 缺失时为nil
func (s *TitleSpider) Parse(html string) map[string]any {
	title, description := parseTitleAndDescription(html)
	return map[string]any{
		"title":       optional(title),
		"description": optional(description),
	}
}

// MetaTitleSpider 与TitleSpider相同的提取逻辑,输出携带来源和URL,与广告数据格式兼容
type MetaTitleSpider struct {
	fetcher Fetcher
}

// NewMetaTitleSpider 创建爬虫
func NewMetaTitleSpider(fetcher Fetcher) *MetaTitleSpider {
	return &MetaTitleSpider{fetcher: fetcher}
}

// Source 来源标识
func (s *MetaTitleSpider) Source() string {
	return "meta"
}

// Run 抓取并解析页面,data中的url设为实际请求地址
func (s *MetaTitleSpider) Run(ctx context.Context, url string) (*models.SpiderRecord, error) {
	record, err := runSpider(ctx, s, s.fetcher, url)
	if err != nil {
		return nil, err
	}
	record.Data["url"] = url
	return record, nil
}

// Parse 返回 {source, title, description, url}
func (s *MetaTitleSpider) Parse(html string) map[string]any {
	title, description := parseTitleAndDescription(html)
	return map[string]any{
		"source":      s.Source(),
		"title":       optional(title),
		"description": optional(description),
		"url":         "",
	}
}

// parseTitleAndDescription 解析失败时两者都为nil
func parseTitleAndDescription(html string) (title, description *string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}

	if sel := doc.Find("title").First(); sel.Length() > 0 {
		t := strings.TrimSpace(sel.Text())
		title = &t
	}

	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && content != "" {
		d := strings.TrimSpace(content)
		description = &d
	}

	return title, description
}
