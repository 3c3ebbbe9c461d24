package crawlers

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/andybalholm/brotli"
)

// recordingSleeper 记录等待时长但不真正等待
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

type staticHeaders http.Header

func (h staticHeaders) GetHeaders() (http.Header, error) {
	return http.Header(h).Clone(), nil
}

func newTestSession(t *testing.T, headers models.HeaderProvider) (*Session, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	s, err := NewSession(models.DefaultSessionConfig(), headers,
		WithSleeper(sleeper.sleep),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s, sleeper
}

func TestSession_BlockedExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s, _ := newTestSession(t, nil)
	_, err := s.Fetch(context.Background(), server.URL)

	var statusErr *models.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("期望HTTPStatusError, 实际 %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("期望状态码429, 实际 %d", statusErr.StatusCode)
	}
	if !errors.Is(err, models.ErrBlocked) {
		t.Error("期望匹配ErrBlocked")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("期望恰好3次请求, 实际 %d", got)
	}
	if statusErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", statusErr.Attempts)
	}
}

func TestSession_TransientThenSuccess(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc"})
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if c, err := r.Cookie("sid"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	s, sleeper := newTestSession(t, nil)
	body, err := s.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body != "<html>ok</html>" {
		t.Errorf("响应体不符: %q", body)
	}
	if s.Requests() != 2 {
		t.Errorf("期望2次请求, 实际 %d", s.Requests())
	}

	// 人类延迟, 退避, 人类延迟, 成功后停顿
	if len(sleeper.delays) != 4 {
		t.Fatalf("期望4次等待, 实际 %v", sleeper.delays)
	}
	cfg := models.DefaultSessionConfig()
	for _, i := range []int{0, 2} {
		if d := sleeper.delays[i]; d < cfg.MinDelay || d > cfg.MaxDelay {
			t.Errorf("人类延迟越界: %v", d)
		}
	}
	if d := sleeper.delays[1]; d < time.Second || d > 2*time.Second {
		t.Errorf("第1次退避应在[1s,2s]之间, 实际 %v", d)
	}
	if d := sleeper.delays[3]; d < cfg.SettleMinDelay || d > cfg.SettleMaxDelay {
		t.Errorf("成功后停顿越界: %v", d)
	}
}

func TestSession_FatalStatusNoRetry(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	s, _ := newTestSession(t, nil)
	_, err := s.Fetch(context.Background(), server.URL)

	if !errors.Is(err, models.ErrFatalHTTP) {
		t.Fatalf("期望ErrFatalHTTP, 实际 %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("不可重试状态码只应请求1次, 实际 %d", got)
	}
}

func TestSession_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	s, _ := newTestSession(t, nil)
	_, err := s.Fetch(context.Background(), url)

	var netErr *models.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("期望NetworkError, 实际 %v", err)
	}
}

func TestSession_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s, _ := newTestSession(t, nil)
	_, err := s.FetchWithTimeout(context.Background(), server.URL, 50*time.Millisecond)

	var netErr *models.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("超时应返回NetworkError, 实际 %v", err)
	}
}

func TestSession_TimeoutAboveDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
			w.Write([]byte("slow"))
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := models.DefaultSessionConfig()
	cfg.Timeout = 100 * time.Millisecond
	sleeper := &recordingSleeper{}
	s, err := NewSession(cfg, nil, WithSleeper(sleeper.sleep))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	body, err := s.FetchWithTimeout(context.Background(), server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("单次超时大于默认值时不应失败: %v", err)
	}
	if body != "slow" {
		t.Errorf("响应体不符: %q", body)
	}

	if _, err := s.Fetch(context.Background(), server.URL); err == nil {
		t.Error("默认超时100ms时应返回错误")
	}
}

func TestSession_CancelledContext(t *testing.T) {
	s, err := NewSession(models.DefaultSessionConfig(), nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Fetch(ctx, "http://127.0.0.1:1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望context.Canceled, 实际 %v", err)
	}
	if s.Requests() != 0 {
		t.Errorf("取消后不应发出请求, 实际 %d", s.Requests())
	}
}

func TestSession_AppliesHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	headers := staticHeaders{}
	http.Header(headers).Set("User-Agent", "TestAgent/1.0")
	http.Header(headers).Set("Accept-Language", "en-US,en;q=0.9")

	s, _ := newTestSession(t, headers)
	if _, err := s.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotUA != "TestAgent/1.0" || gotLang != "en-US,en;q=0.9" {
		t.Errorf("头部未应用: UA=%q, Accept-Language=%q", gotUA, gotLang)
	}
}

func TestSession_BrotliBody(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte("<title>压缩页面</title>"))
	bw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	headers := staticHeaders{}
	http.Header(headers).Set("Accept-Encoding", "gzip, deflate, br")

	s, _ := newTestSession(t, headers)
	body, err := s.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body != "<title>压缩页面</title>" {
		t.Errorf("brotli解压结果不符: %q", body)
	}
}

func TestSession_BackoffDelay(t *testing.T) {
	s, _ := newTestSession(t, nil)

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, 1 * time.Second, 2 * time.Second},
		{2, 2 * time.Second, 4 * time.Second},
		{3, 4 * time.Second, 6 * time.Second},
		{6, 32 * time.Second, 34 * time.Second},
		{7, 60 * time.Second, 62 * time.Second},
		{10, 60 * time.Second, 62 * time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 200; i++ {
			d := s.backoffDelay(tt.attempt)
			if d < tt.min || d > tt.max {
				t.Fatalf("第%d次退避 %v 超出 [%v, %v]", tt.attempt, d, tt.min, tt.max)
			}
		}
	}
}

func TestDecompressResponse(t *testing.T) {
	plain := []byte("hello")

	got, err := decompressResponse("gzip", plain)
	if err != nil || string(got) != "hello" {
		t.Errorf("已解压的gzip内容应原样返回: %q, %v", got, err)
	}

	got, err = decompressResponse("", plain)
	if err != nil || string(got) != "hello" {
		t.Errorf("无编码应原样返回: %q, %v", got, err)
	}

	if _, err := decompressResponse("br", []byte{0xff, 0xff, 0xff}); err == nil {
		t.Error("损坏的brotli数据应返回错误")
	}
}

func TestResourceMonitor(t *testing.T) {
	used := 50.0
	rm := NewResourceMonitor(80, func() (float64, error) { return used, nil })
	rm.cacheTTL = 0

	if rm.UnderPressure() {
		t.Error("50%不应触发内存压力")
	}
	used = 85
	if !rm.UnderPressure() {
		t.Error("85%应触发内存压力")
	}
	if status := rm.GetMemoryStatus(); status.MemoryPressure != "high" {
		t.Errorf("期望high, 实际 %s", status.MemoryPressure)
	}

	disabled := NewResourceMonitor(0, func() (float64, error) { return 99, nil })
	if disabled.UnderPressure() {
		t.Error("阈值为0时不应触发")
	}

	failing := NewResourceMonitor(10, func() (float64, error) { return 0, errors.New("不可用") })
	if failing.UnderPressure() {
		t.Error("采样失败时不应触发")
	}
}
