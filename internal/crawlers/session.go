package crawlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// Sleeper 可被context中断的等待函数
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext 默认等待实现
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SessionOption 会话选项
type SessionOption func(*Session)

// WithSleeper 替换等待函数 (测试中用于跳过真实延迟)
func WithSleeper(sleep Sleeper) SessionOption {
	return func(s *Session) {
		s.sleep = sleep
	}
}

// WithRand 指定随机源
func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) {
		s.rng = rng
	}
}

// WithTransport 替换底层HTTP传输
func WithTransport(rt http.RoundTripper) SessionOption {
	return func(s *Session) {
		s.collector.WithTransport(rt)
	}
}

// Session 具备反爬虫韧性的HTTP会话
//
// 每次尝试前轮换User-Agent并随机等待,按状态码分类:
//   - 200 成功,短暂停顿后返回
//   - 403/429 被拦截, 500/502/503/504 临时故障: 指数退避+抖动后重试
//   - 其他状态码立即失败
//
// Cookie在所有尝试之间共享 (colly克隆共用同一个cookie jar)
type Session struct {
	config    models.SessionConfig
	collector *colly.Collector
	headers   models.HeaderProvider
	limiter   *rate.Limiter
	sleep     Sleeper

	mu       sync.Mutex // 保护rng和统计
	rng      *rand.Rand
	requests int
}

// NewSession 创建会话
// headers 为nil时只发送colly默认头部
func NewSession(config models.SessionConfig, headers models.HeaderProvider, opts ...SessionOption) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("会话配置无效: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)
	// 超时由每次尝试的context控制, 客户端不再设置上限
	c.SetRequestTimeout(0)

	s := &Session{
		config:    config,
		collector: c,
		headers:   headers,
		sleep:     SleepContext,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}

	if config.RateLimit > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Config 返回会话配置
func (s *Session) Config() models.SessionConfig {
	return s.config
}

// Requests 已发出的请求数
func (s *Session) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Fetch 使用默认超时抓取页面
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	return s.FetchWithTimeout(ctx, url, s.config.Timeout)
}

// FetchWithTimeout 抓取页面并返回响应体文本
// 错误类型: *models.NetworkError, *models.HTTPStatusError, 或context取消错误
func (s *Session) FetchWithTimeout(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.config.Timeout
	}

	maxAttempts := s.config.MaxRetries
	for attempt := 1; ; attempt++ {
		if err := s.sleep(ctx, s.uniform(s.config.MinDelay, s.config.MaxDelay)); err != nil {
			return "", fmt.Errorf("请求已取消 [%s]: %w", url, err)
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("请求已取消 [%s]: %w", url, err)
			}
		}

		status, body, err := s.attempt(ctx, url, timeout)
		if err != nil {
			return "", err
		}

		kind := models.ClassifyStatus(status)
		switch {
		case kind == models.StatusSuccess:
			utils.Debugf("抓取成功 [%s]: 第%d次尝试, %d字节", url, attempt, len(body))
			if err := s.sleep(ctx, s.uniform(s.config.SettleMinDelay, s.config.SettleMaxDelay)); err != nil {
				return "", fmt.Errorf("请求已取消 [%s]: %w", url, err)
			}
			return body, nil

		case kind.Retryable() && attempt < maxAttempts:
			delay := s.backoffDelay(attempt)
			utils.Warnf("HTTP %d [%s] (%s): 第%d/%d次尝试, %.1f秒后重试",
				status, url, kind, attempt, maxAttempts, delay.Seconds())
			if err := s.sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("请求已取消 [%s]: %w", url, err)
			}

		default:
			if kind.Retryable() {
				utils.Errorf("HTTP %d [%s]: 重试%d次后放弃", status, url, attempt)
			}
			return "", &models.HTTPStatusError{
				URL:        url,
				StatusCode: status,
				Kind:       kind,
				Attempts:   attempt,
			}
		}
	}
}

// attempt 发出一次GET请求
// 使用克隆的collector,以便每次尝试拥有独立的回调和context
func (s *Session) attempt(ctx context.Context, url string, timeout time.Duration) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers, err := s.currentHeaders()
	if err != nil {
		return 0, "", err
	}

	c := s.collector.Clone()
	c.Context = reqCtx

	var (
		status int
		body   []byte
	)
	c.OnRequest(func(r *colly.Request) {
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
		utils.Debugf("GET %s (UA=%s)", r.URL.String(), r.Headers.Get("User-Agent"))
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		if r.Headers != nil {
			if decoded, err := decompressResponse(r.Headers.Get("Content-Encoding"), r.Body); err != nil {
				utils.Warnf("解压响应失败 [%s]: %v", url, err)
			} else {
				body = decoded
			}
		}
	})

	s.mu.Lock()
	s.requests++
	s.mu.Unlock()

	if err := c.Visit(url); err != nil {
		// 调用方取消时原样返回,便于上层识别
		if ctx.Err() != nil {
			return 0, "", fmt.Errorf("请求已取消 [%s]: %w", url, ctx.Err())
		}
		return 0, "", &models.NetworkError{URL: url, Cause: err}
	}
	if status == 0 {
		return 0, "", &models.NetworkError{URL: url, Cause: errors.New("未收到响应")}
	}

	return status, string(body), nil
}

// currentHeaders 获取本次尝试使用的头部 (HeaderProvider负责轮换User-Agent)
func (s *Session) currentHeaders() (http.Header, error) {
	if s.headers == nil {
		return http.Header{}, nil
	}
	headers, err := s.headers.GetHeaders()
	if err != nil {
		return nil, fmt.Errorf("获取HTTP头部失败: %w", err)
	}
	return headers, nil
}

// backoffDelay 计算第attempt次(从1开始)失败后的等待时间
// 指数从0开始: delay = min(cap, base^(attempt-1)) + uniform(0, min(jitterMax, delay))
// 默认配置下首次重试等待 1s+U(0,1s), 第二次 2s+U(0,2s)
func (s *Session) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	raw := math.Pow(s.config.BackoffBase, float64(attempt-1)) * float64(time.Second)
	delay := s.config.BackoffCap
	if raw < float64(delay) {
		delay = time.Duration(raw)
	}

	jitterMax := s.config.JitterMax
	if delay < jitterMax {
		jitterMax = delay
	}
	return delay + s.uniform(0, jitterMax)
}

// uniform 返回[min, max]区间内的随机时长
func (s *Session) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int64N(int64(max-min)+1))
}
