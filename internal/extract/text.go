package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// emojiRun 常见emoji区块的连续序列
var emojiRun = regexp.MustCompile(`[\x{1F300}-\x{1F9FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]+`)

// maxEmojiRun 不超过该长度的emoji序列原样保留
const maxEmojiRun = 2

// CleanText 清理广告文案
//   - 连续空白压缩为单个空格并去除首尾空白
//   - 3个及以上连续emoji替换为一个空格, 1-2个保留
func CleanText(text string) string {
	cleaned := collapseSpaces(text)
	cleaned = emojiRun.ReplaceAllStringFunc(cleaned, func(run string) string {
		if utf8.RuneCountInString(run) > maxEmojiRun {
			return " "
		}
		return run
	})
	return collapseSpaces(cleaned)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
