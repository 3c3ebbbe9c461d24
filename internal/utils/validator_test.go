package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

func TestHeaderValidator_ValidateName(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		expectError bool
	}{
		{"合法名称-字母", "Referer", false},
		{"合法名称-数字", "X-Request-ID-123", false},
		{"合法名称-连字符", "Accept-Language", false},
		{"非法名称-空格", "User Agent", true},
		{"非法名称-下划线", "User_Agent", true},
		{"非法名称-特殊字符", "User@Agent", true},
		{"非法名称-空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.headerName)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateValue(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerValue string
		expectError bool
	}{
		{"合法值-ASCII", "Mozilla/5.0", false},
		{"合法值-空字符串", "", false},
		{"合法值-最大长度", strings.Repeat("a", MaxHeaderValueLength), false},
		{"非法值-超长", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "value\x00with\x01null", true},
		{"非法值-中文", "中文值", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateValue("X-Test", tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_Forbidden(t *testing.T) {
	validator := NewHeaderValidator()

	for _, name := range []string{"Host", "content-length", "CONNECTION", "Accept-Encoding"} {
		t.Run(name, func(t *testing.T) {
			err := validator.ValidateHeader(name, "x")
			var vErr *models.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("期望ValidationError, 实际 %v", err)
			}
			if vErr.Suggestion == "" {
				t.Error("禁止头部应附带修复建议")
			}
		})
	}

	if err := validator.ValidateHeader("Cookie", "a=1"); err != nil {
		t.Errorf("Cookie应允许自定义: %v", err)
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	headers := http.Header{}
	headers.Set("Referer", "https://example.com")
	headers.Set("X-Bad_Name", "v")
	headers.Set("Host", "evil")

	// 按名称排序后 Host 先于 X-Bad_Name
	err := validator.Validate(headers)
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.HeaderName != "Host" {
		t.Errorf("期望首个错误来自Host, 实际 %v", err)
	}

	if err := validator.ValidateMap(map[string]string{"referer": "https://example.com"}); err != nil {
		t.Errorf("合法map不应报错: %v", err)
	}
}

func TestHeaderRedactor(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"Bearer令牌", "Authorization", "Bearer abc.def.ghi", "Bearer ***"},
		{"Cookie仅保留名称", "Cookie", "sid=abc; lsd=xyz", "sid=***; lsd=***"},
		{"长密钥保留首尾", "X-Api-Key", "1234567890abcdef", "1234***cdef"},
		{"短密钥完全隐藏", "X-Csrf-Token", "short", "***"},
		{"非敏感头部原样输出", "Accept-Language", "en-US,en;q=0.9", "en-US,en;q=0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactHeaderValue(tt.header, tt.value); got != tt.want {
				t.Errorf("期望 %q, 实际 %q", tt.want, got)
			}
		})
	}

	headers := http.Header{}
	headers.Set("User-Agent", "UA/1.0")
	headers.Set("Authorization", "Bearer secret")
	if got := redactor.RedactToString(headers); got != "Authorization: Bearer ***, User-Agent: UA/1.0" {
		t.Errorf("RedactToString输出不符: %s", got)
	}
}
