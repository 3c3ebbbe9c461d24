package models

// SpiderRecord 爬虫解析输出
// Data 的内容由具体爬虫决定 (如 title/description 或 ad_intelligence)
type SpiderRecord struct {
	Source string         `json:"source" yaml:"source"`
	URL    string         `json:"url" yaml:"url"`
	Data   map[string]any `json:"data" yaml:"data"`
}

// NormalizedRecord 规范化后的统一记录
// 五个字段始终存在,缺失值序列化为null
type NormalizedRecord struct {
	Source      string  `json:"source" yaml:"source"`
	Title       *string `json:"title" yaml:"title"`
	Description *string `json:"description" yaml:"description"`
	URL         *string `json:"url" yaml:"url"`
	FetchedAt   string  `json:"fetched_at" yaml:"fetched_at"` // UTC ISO-8601, 规范化时刻
}
