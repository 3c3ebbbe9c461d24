// Package extract 从HTML中恢复内嵌的结构化数据
//
// 页面中的JSON块有两种来源:
//   - 脚本中的变量赋值: window._sharedData = {...};
//   - <script type="application/ld+json"> 元素
//
// 字段提取按"逐字段、逐块"的优先级进行:每个目标字段在所有块中依次做递归别名查找,
// 第一个包含任一别名键的块胜出。页面结构差异很大时,只要某个块里有某个别名键即可提取。
package extract

import (
	"regexp"
	"strings"

	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

var (
	// assignmentBlock 形如 identifier = {...}; 的脚本赋值
	assignmentBlock = regexp.MustCompile(`(?s)(?:window\.)?[A-Za-z_$][\w$.]*\s*=\s*(\{.*?\});`)

	// ldJSONBlock <script type="application/ld+json">...</script>
	ldJSONBlock = regexp.MustCompile(`(?is)<script[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>(.*?)</script>`)
)

// ExtractBlocks 按出现顺序返回所有可解析的JSON块
// 先是全部赋值块,再是全部ld+json块;无法解析的块被跳过
func ExtractBlocks(html string) []any {
	blocks := make([]any, 0)
	skipped := 0

	for _, pattern := range []*regexp.Regexp{assignmentBlock, ldJSONBlock} {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			value, err := ParseJSON(strings.TrimSpace(match[1]))
			if err != nil {
				skipped++
				continue
			}
			blocks = append(blocks, value)
		}
	}

	if skipped > 0 {
		utils.Debugf("跳过%d个无法解析的JSON块", skipped)
	}
	return blocks
}
