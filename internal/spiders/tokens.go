package spiders

import (
	"context"
	"strings"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"golang.org/x/net/html"
)

// FormTokenSpider 提取隐藏表单字段 (CSRF、lsd、__VIEWSTATE 等)
// 结果可直接用于后续POST请求或基于会话的抓取
type FormTokenSpider struct {
	fetcher Fetcher
}

// NewFormTokenSpider 创建爬虫
func NewFormTokenSpider(fetcher Fetcher) *FormTokenSpider {
	return &FormTokenSpider{fetcher: fetcher}
}

// Source 来源标识
func (s *FormTokenSpider) Source() string {
	return "form_tokens"
}

// Run 抓取并解析页面
func (s *FormTokenSpider) Run(ctx context.Context, url string) (*models.SpiderRecord, error) {
	return runSpider(ctx, s, s.fetcher, url)
}

// Parse 返回 {hidden_inputs, count}
func (s *FormTokenSpider) Parse(body string) map[string]any {
	inputs := ExtractHiddenInputs(body)
	return map[string]any{
		"hidden_inputs": inputs,
		"count":         len(inputs),
	}
}

// ExtractHiddenInputs 提取所有 <input type="hidden"> 的 name -> value
// 缺少name或value属性的字段被忽略,同名字段以最后一个为准
func ExtractHiddenInputs(body string) map[string]string {
	result := make(map[string]string)
	tokenizer := html.NewTokenizer(strings.NewReader(body))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return result
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "input" {
				continue
			}

			var (
				name, value       string
				hasName, hasValue bool
				hidden            bool
			)
			for _, attr := range token.Attr {
				switch attr.Key {
				case "type":
					hidden = strings.EqualFold(strings.TrimSpace(attr.Val), "hidden")
				case "name":
					name, hasName = attr.Val, true
				case "value":
					value, hasValue = attr.Val, true
				}
			}
			if hidden && hasName && hasValue {
				result[name] = value
			}
		}
	}
}
