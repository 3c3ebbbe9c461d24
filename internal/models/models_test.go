package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
		{"仅空白", "   ", true},
		{"缺少主机名", "https:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var urlErr *InvalidURLError
			if !errors.As(err, &urlErr) || urlErr.URL != tt.url {
				t.Errorf("期望InvalidURLError(URL=%q), 实际 %v", tt.url, err)
			}
			if !errors.Is(err, ErrInvalidURL) {
				t.Error("期望匹配ErrInvalidURL")
			}
		})
	}
}

func TestSessionConfig_Validate(t *testing.T) {
	valid := DefaultSessionConfig()

	tests := []struct {
		name    string
		mutate  func(c *SessionConfig)
		wantErr bool
	}{
		{"默认配置", func(c *SessionConfig) {}, false},
		{"超时为0", func(c *SessionConfig) { c.Timeout = 0 }, true},
		{"尝试次数为0", func(c *SessionConfig) { c.MaxRetries = 0 }, true},
		{"延迟范围颠倒", func(c *SessionConfig) { c.MinDelay = 5 * time.Second }, true},
		{"成功延迟范围颠倒", func(c *SessionConfig) { c.SettleMaxDelay = 0 }, true},
		{"退避底数过小", func(c *SessionConfig) { c.BackoffBase = 0.5 }, true},
		{"负数限速", func(c *SessionConfig) { c.RateLimit = -1 }, true},
		{"零延迟", func(c *SessionConfig) {
			c.MinDelay, c.MaxDelay = 0, 0
			c.SettleMinDelay, c.SettleMaxDelay = 0, 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want StatusKind
	}{
		{200, StatusSuccess},
		{403, StatusBlocked},
		{429, StatusBlocked},
		{500, StatusTransient},
		{502, StatusTransient},
		{503, StatusTransient},
		{504, StatusTransient},
		{201, StatusFatal},
		{301, StatusFatal},
		{404, StatusFatal},
		{501, StatusFatal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("状态码%d", tt.code), func(t *testing.T) {
			if got := ClassifyStatus(tt.code); got != tt.want {
				t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestHTTPStatusError_Is(t *testing.T) {
	err := fmt.Errorf("抓取失败: %w", &HTTPStatusError{
		URL: "https://example.com", StatusCode: http.StatusTooManyRequests, Kind: StatusBlocked, Attempts: 3,
	})

	if !errors.Is(err, ErrBlocked) {
		t.Error("429错误应匹配ErrBlocked")
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrFatalHTTP) {
		t.Error("429错误不应匹配其他类别")
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 429 {
		t.Errorf("期望提取到状态码429, 实际 %+v", statusErr)
	}
}

func TestSpiderNotFoundError(t *testing.T) {
	err := &SpiderNotFoundError{Name: "ghost"}
	if !errors.Is(err, ErrSpiderNotFound) {
		t.Error("应匹配ErrSpiderNotFound")
	}
	if err.Error() != "爬虫未注册: ghost" {
		t.Errorf("错误信息不符: %s", err.Error())
	}
}

func fixedClock(day string) func() time.Time {
	t, _ := time.Parse("2006-01-02", day)
	return func() time.Time { return t.Add(15 * time.Hour) }
}

func TestAdIntelligence_DerivedFields(t *testing.T) {
	now := fixedClock("2024-03-01")
	today := TruncateDate(now())

	tests := []struct {
		name           string
		days           int
		wantWinning    bool
		wantConfidence float64
	}{
		{"当天开始", 0, false, 0},
		{"投放1天", 1, false, 1.0 / 30},
		{"恰好14天不算获胜", 14, false, 14.0 / 30},
		{"15天为获胜广告", 15, true, 0.5},
		{"恰好30天置信度为1", 30, true, 1},
		{"超过30天置信度封顶", 90, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := today.AddDate(0, 0, -tt.days)
			ad, err := NewAdIntelligenceAt("ad-1", PlatformMeta, start, nil, nil, now)
			if err != nil {
				t.Fatalf("NewAdIntelligenceAt() error = %v", err)
			}
			if ad.DaysActive() != tt.days {
				t.Errorf("DaysActive = %d, want %d", ad.DaysActive(), tt.days)
			}
			if ad.IsWinningAd() != tt.wantWinning {
				t.Errorf("IsWinningAd = %v, want %v", ad.IsWinningAd(), tt.wantWinning)
			}
			if ad.ConfidenceScore() != tt.wantConfidence {
				t.Errorf("ConfidenceScore = %v, want %v", ad.ConfidenceScore(), tt.wantConfidence)
			}
		})
	}
}

func TestConfidenceForDays_Monotonic(t *testing.T) {
	prev := ConfidenceForDays(-5)
	if prev != 0 {
		t.Fatalf("负数天数置信度应为0, 实际 %v", prev)
	}
	for d := 0; d <= 60; d++ {
		cur := ConfidenceForDays(d)
		if cur < prev {
			t.Fatalf("置信度在第%d天下降: %v < %v", d, cur, prev)
		}
		if cur < 0 || cur > 1 {
			t.Fatalf("置信度越界: %v", cur)
		}
		prev = cur
	}
}

func TestNewAdIntelligence_FutureStartDate(t *testing.T) {
	now := fixedClock("2024-03-01")
	tomorrow := TruncateDate(now()).AddDate(0, 0, 1)

	_, err := NewAdIntelligenceAt("ad-1", PlatformMeta, tomorrow, nil, nil, now)
	if !errors.Is(err, ErrFutureStartDate) {
		t.Errorf("期望ErrFutureStartDate, 实际 %v", err)
	}
}

func TestAdIntelligence_MarshalJSON(t *testing.T) {
	now := fixedClock("2024-01-31")
	start, _ := time.Parse("2006-01-02", "2024-01-01")
	copyText := "Test copy"

	ad, err := NewAdIntelligenceAt("ad-456", PlatformMeta, start, &copyText, nil, now)
	if err != nil {
		t.Fatalf("NewAdIntelligenceAt() error = %v", err)
	}

	data, err := json.Marshal(ad)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["start_date"] != "2024-01-01" {
		t.Errorf("start_date = %v", decoded["start_date"])
	}
	if decoded["days_active"] != float64(30) {
		t.Errorf("days_active = %v", decoded["days_active"])
	}
	if decoded["is_winning_ad"] != true {
		t.Errorf("is_winning_ad = %v", decoded["is_winning_ad"])
	}
	if decoded["creative_url"] != nil {
		t.Errorf("creative_url应为null, 实际 %v", decoded["creative_url"])
	}
}

func TestNormalizedRecord_NullFields(t *testing.T) {
	record := NormalizedRecord{Source: "meta", FetchedAt: "2024-01-01T00:00:00Z"}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(decoded) != 5 {
		t.Errorf("期望5个字段, 实际 %d: %v", len(decoded), decoded)
	}
	for _, key := range []string{"title", "description", "url"} {
		v, ok := decoded[key]
		if !ok || v != nil {
			t.Errorf("%s 应存在且为null, 实际 %v (存在=%v)", key, v, ok)
		}
	}
}

func TestNewScheduleTask(t *testing.T) {
	tests := []struct {
		name     string
		spider   string
		url      string
		interval time.Duration
		wantErr  bool
	}{
		{"有效任务", "title", "https://example.com", time.Minute, false},
		{"空爬虫名", "", "https://example.com", time.Minute, true},
		{"无效URL", "title", "example.com", time.Minute, true},
		{"零间隔", "title", "https://example.com", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewScheduleTask(tt.spider, tt.url, tt.interval)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewScheduleTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (task.ID == "" || task.Status != TaskStatusPending) {
				t.Errorf("任务初始化不完整: %+v", task)
			}
		})
	}
}

func TestScrapeReport_Failures(t *testing.T) {
	start := time.Now()
	report := NewScrapeReport("meta", start)

	report.AddFailure("https://a.example", &HTTPStatusError{URL: "https://a.example", StatusCode: 503, Kind: StatusTransient, Attempts: 3})
	report.AddFailure("https://b.example", &NetworkError{URL: "https://b.example", Cause: errors.New("connection refused")})
	report.AddFailure("https://c.example", errors.New("boom"))
	report.Finish(start.Add(2 * time.Second))

	want := []string{"transient", "network", "unknown"}
	for i, w := range want {
		if report.Errors[i].ErrorType != w {
			t.Errorf("第%d个错误类型 = %s, want %s", i, report.Errors[i].ErrorType, w)
		}
	}
	if report.Errors[0].StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", report.Errors[0].StatusCode)
	}
	if report.Duration != 2 {
		t.Errorf("Duration = %v, want 2", report.Duration)
	}

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	var decoded ScrapeReport
	if err := decoded.FromJSON(data); err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if decoded.ID != report.ID || len(decoded.Errors) != 3 {
		t.Errorf("解码后的报告不匹配: %+v", decoded)
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	headers, err := CliHeaders{"X-Test: 1", "User-Agent:  custom/1.0 "}.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if headers.Get("User-Agent") != "custom/1.0" {
		t.Errorf("User-Agent = %q", headers.Get("User-Agent"))
	}

	if _, err := (CliHeaders{"no-colon"}).Parse(); err == nil {
		t.Error("缺少冒号时应返回错误")
	}
}

func TestCliHeaders_ParseEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"名称和值前后空格", "  X-Test  :   value  ", "X-Test", "value", false},
		{"值中间的空格保留", "X-Test: a  b c", "X-Test", "a  b c", false},
		{"值中包含冒号", "Referer: https://example.com:8443/a", "Referer", "https://example.com:8443/a", false},
		{"值中包含等号", "Cookie: sid=abc; lang=en", "Cookie", "sid=abc; lang=en", false},
		{"只有冒号没有值", "X-Empty:", "X-Empty", "", false},
		{"只有冒号没有名称", ": value", "", "", true},
		{"缺少冒号分隔符", "X-Test value", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, err := CliHeaders{tt.input}.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := headers.Get(tt.wantName); got != tt.wantValue {
				t.Errorf("%s = %q, 期望 %q", tt.wantName, got, tt.wantValue)
			}
		})
	}

	t.Run("空列表", func(t *testing.T) {
		headers, err := CliHeaders(nil).Parse()
		if err != nil || len(headers) != 0 {
			t.Errorf("nil列表应返回空头部, 实际 %v %v", headers, err)
		}
	})
}
