package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 如 ADSPIDER_SESSION_MAX_RETRIES
const EnvPrefix = "ADSPIDER"

// Config 应用程序配置
type Config struct {
	Session   models.SessionConfig `mapstructure:"session"`
	Scheduler SchedulerConfig      `mapstructure:"scheduler"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Output    OutputConfig         `mapstructure:"output"`
	Server    ServerConfig         `mapstructure:"server"`
	Headers   HeadersConfig        `mapstructure:"headers"`
}

// SchedulerConfig 定时抓取配置
type SchedulerConfig struct {
	Interval         time.Duration `mapstructure:"interval"`           // 默认调度间隔
	MaxStoredRecords int           `mapstructure:"max_stored_records"` // 结果存储超过该数量时落盘, 0表示不限
	MemoryThreshold  float64       `mapstructure:"memory_threshold"`   // 系统内存使用率超过该值(%)时落盘, 0表示关闭
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
	Format  string `mapstructure:"format"` // json 或 yaml
}

// ServerConfig HTTP接口配置
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// HeadersConfig 头部配置文件位置
type HeadersConfig struct {
	ConfigFile string `mapstructure:"config_file"`
}

// LoadConfig 加载配置文件
// 优先级: 默认值 < 配置文件 < ADSPIDER_ 环境变量
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".adspider"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		utils.Debugf("未找到配置文件,使用默认值")
	} else {
		utils.Debugf("已加载配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	session := models.DefaultSessionConfig()
	v.SetDefault("session.timeout", session.Timeout)
	v.SetDefault("session.max_retries", session.MaxRetries)
	v.SetDefault("session.min_delay", session.MinDelay)
	v.SetDefault("session.max_delay", session.MaxDelay)
	v.SetDefault("session.settle_min_delay", session.SettleMinDelay)
	v.SetDefault("session.settle_max_delay", session.SettleMaxDelay)
	v.SetDefault("session.backoff_base", session.BackoffBase)
	v.SetDefault("session.backoff_cap", session.BackoffCap)
	v.SetDefault("session.jitter_max", session.JitterMax)
	v.SetDefault("session.rate_limit", session.RateLimit)
	v.SetDefault("session.burst", session.Burst)

	// 调度配置默认值
	v.SetDefault("scheduler.interval", time.Hour)
	v.SetDefault("scheduler.max_stored_records", 1000)
	v.SetDefault("scheduler.memory_threshold", 85.0)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("headers.config_file", "")
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval 必须大于0")
	}
	if c.Scheduler.MaxStoredRecords < 0 {
		return fmt.Errorf("scheduler.max_stored_records 不能为负数")
	}
	if c.Scheduler.MemoryThreshold < 0 || c.Scheduler.MemoryThreshold > 100 {
		return fmt.Errorf("scheduler.memory_threshold 必须在0-100之间")
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.format 只支持 json 或 yaml: %s", c.Output.Format)
	}
	return nil
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// MergeCLIFlags 合并命令行参数到配置
// 零值表示未指定,保留配置文件中的值
func (c *Config) MergeCLIFlags(
	logLevel string,
	outputDir string,
	format string,
	maxRetries int,
	timeout time.Duration,
	headersFile string,
) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if outputDir != "" {
		c.Output.BaseDir = outputDir
	}
	if format != "" {
		c.Output.Format = format
	}
	if maxRetries > 0 {
		c.Session.MaxRetries = maxRetries
	}
	if timeout > 0 {
		c.Session.Timeout = timeout
	}
	if headersFile != "" {
		c.Headers.ConfigFile = headersFile
	}
}
