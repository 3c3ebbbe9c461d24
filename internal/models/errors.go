package models

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusKind HTTP状态码分类
type StatusKind string

const (
	StatusSuccess   StatusKind = "success"   // 200
	StatusBlocked   StatusKind = "blocked"   // 403, 429: 反爬虫拦截,退避后重试
	StatusTransient StatusKind = "transient" // 500, 502, 503, 504: 临时故障,退避后重试
	StatusFatal     StatusKind = "fatal"     // 其他状态码: 立即失败
)

var (
	// ErrBlocked 重试耗尽后仍被拦截 (403/429)
	ErrBlocked = errors.New("请求被目标站点拦截")

	// ErrTransient 重试耗尽后仍为服务端临时错误 (5xx)
	ErrTransient = errors.New("目标站点暂时不可用")

	// ErrFatalHTTP 不可重试的HTTP状态码
	ErrFatalHTTP = errors.New("不可重试的HTTP状态码")

	// ErrSpiderNotFound 爬虫未注册
	ErrSpiderNotFound = errors.New("爬虫未注册")

	// ErrInvalidURL 目标URL不是带主机名的http/https地址
	ErrInvalidURL = errors.New("无效的URL")

	// ErrFutureStartDate 广告开始日期晚于今天
	ErrFutureStartDate = errors.New("start_date不能晚于今天")
)

// ClassifyStatus 将HTTP状态码划分为四类
func ClassifyStatus(code int) StatusKind {
	switch code {
	case http.StatusOK:
		return StatusSuccess
	case http.StatusForbidden, http.StatusTooManyRequests:
		return StatusBlocked
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return StatusTransient
	default:
		return StatusFatal
	}
}

// Retryable 该分类是否允许退避重试
func (k StatusKind) Retryable() bool {
	return k == StatusBlocked || k == StatusTransient
}

// NetworkError 连接失败或超时
type NetworkError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *NetworkError) Error() string {
	return fmt.Sprintf("网络错误 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// HTTPStatusError 携带最后一次响应状态码的HTTP错误
// 可通过 errors.Is(err, ErrBlocked / ErrTransient / ErrFatalHTTP) 判断类别
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Kind       StatusKind
	Attempts   int // 实际发起的请求次数
}

// Error 实现error接口
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s [%s] (类别=%s, 尝试%d次)",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL, e.Kind, e.Attempts)
}

// Is 按类别匹配哨兵错误
func (e *HTTPStatusError) Is(target error) bool {
	switch target {
	case ErrBlocked:
		return e.Kind == StatusBlocked
	case ErrTransient:
		return e.Kind == StatusTransient
	case ErrFatalHTTP:
		return e.Kind == StatusFatal
	}
	return false
}

// SpiderNotFoundError 按名称查找爬虫失败
type SpiderNotFoundError struct {
	Name string
}

// Error 实现error接口
func (e *SpiderNotFoundError) Error() string {
	return fmt.Sprintf("爬虫未注册: %s", e.Name)
}

// Is 匹配 ErrSpiderNotFound
func (e *SpiderNotFoundError) Is(target error) bool {
	return target == ErrSpiderNotFound
}
