package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// InvalidURLError 目标URL无法抓取
// 可通过 errors.Is(err, ErrInvalidURL) 判断
type InvalidURLError struct {
	URL    string
	Reason string
}

// Error 实现error接口
func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("无效的URL [%s]: %s", e.URL, e.Reason)
}

// Is 匹配 ErrInvalidURL
func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// ValidateURL 检查URL是否可作为抓取目标
// 只接受带主机名的 http/https 绝对地址
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return &InvalidURLError{URL: rawURL, Reason: "URL为空"}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}
	switch {
	case parsed.Scheme == "":
		return &InvalidURLError{URL: rawURL, Reason: "缺少协议(http/https)"}
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return &InvalidURLError{URL: rawURL, Reason: fmt.Sprintf("不支持的协议 %q", parsed.Scheme)}
	case parsed.Host == "":
		return &InvalidURLError{URL: rawURL, Reason: "缺少主机名"}
	}
	return nil
}

// generateID 生成任务/报告ID
func generateID() string {
	return uuid.New().String()
}
