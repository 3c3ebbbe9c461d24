package core

import (
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/config"
	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

// builtinUserAgents 内置User-Agent轮换池
var builtinUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// HeaderManager 管理HTTP请求头部的生命周期
// 实现 HeaderProvider 接口, 每次调用 GetHeaders 轮换一次User-Agent
type HeaderManager struct {
	// defaults 浏览器风格的默认头部
	defaults http.Header

	// config 从配置文件加载的头部
	config http.Header

	// cli 从命令行参数解析的头部
	cli http.Header

	// userAgents 轮换池 (内置 + 配置文件)
	userAgents []string

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	mu     sync.Mutex
	rng    *rand.Rand
	loaded bool
}

// NewHeaderManager 创建头部管理器
// 参数:
//   - configFile: 配置文件路径 (如为空则使用默认路径)
//   - cliHeaders: 命令行传递的头部字符串列表
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:     getDefaultHeaders(),
		config:       make(http.Header),
		cli:          make(http.Header),
		userAgents:   append([]string(nil), builtinUserAgents...),
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xa9e7)),
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	return hm, nil
}

// getDefaultHeaders 返回系统默认头部 (User-Agent由轮换池提供)
func getDefaultHeaders() http.Header {
	return http.Header{
		"Accept":                    []string{"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
		"Accept-Language":           []string{"en-US,en;q=0.9"},
		"Accept-Encoding":           []string{"gzip, deflate, br"},
		"Connection":                []string{"keep-alive"},
		"Sec-Fetch-Dest":            []string{"document"},
		"Sec-Fetch-Mode":            []string{"navigate"},
		"Sec-Fetch-Site":            []string{"none"},
		"Sec-Fetch-User":            []string{"?1"},
		"Upgrade-Insecure-Requests": []string{"1"},
		"Cache-Control":             []string{"max-age=0"},
	}
}

// LoadConfig 加载并验证配置文件, 已加载时跳过
func (hm *HeaderManager) LoadConfig() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	configHeaders := make(http.Header)
	for name, value := range headerConfig.Headers {
		configHeaders.Set(name, value)
	}
	if err := hm.validator.Validate(configHeaders); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}
	if err := hm.validator.Validate(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}

	hm.config = configHeaders
	hm.userAgents = mergeUserAgents(builtinUserAgents, headerConfig.UserAgents)
	hm.loaded = true

	if len(configHeaders) > 0 {
		utils.Debugf("成功加载%d个HTTP头部配置: %v", len(configHeaders), hm.redactor.Redact(configHeaders))
	}
	if hm.pinnedUserAgent() != "" {
		utils.Infof("已固定User-Agent,关闭轮换")
	} else {
		utils.Debugf("User-Agent轮换池: %d个", len(hm.userAgents))
	}

	return nil
}

// mergeUserAgents 合并并去重, 保持顺序
func mergeUserAgents(base, extra []string) []string {
	return config.CleanUserAgents(append(append([]string(nil), base...), extra...))
}

// pinnedUserAgent 用户在配置文件或命令行中指定的User-Agent, 命令行优先
func (hm *HeaderManager) pinnedUserAgent() string {
	if ua := hm.cli.Get("User-Agent"); ua != "" {
		return ua
	}
	return hm.config.Get("User-Agent")
}

// UserAgents 返回轮换池副本
func (hm *HeaderManager) UserAgents() []string {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return append([]string(nil), hm.userAgents...)
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
// 未固定User-Agent时从轮换池随机选取
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	result := make(http.Header)
	for name, values := range hm.defaults {
		result[name] = append([]string(nil), values...)
	}
	if len(hm.userAgents) > 0 {
		result.Set("User-Agent", hm.userAgents[hm.rng.IntN(len(hm.userAgents))])
	}
	for name, values := range hm.config {
		result[name] = append([]string(nil), values...)
	}
	for name, values := range hm.cli {
		result[name] = append([]string(nil), values...)
	}

	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}
