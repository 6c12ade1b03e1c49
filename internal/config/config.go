package config

import (
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是qcli的配置文件结构
type Config struct {
	Logger Logger  `yaml:"logger"`
	Queues []Queue `yaml:"queues"`
}

// Logger 日志配置，FileLogName为空时输出到标准错误
type Logger struct {
	LogLevel    string `yaml:"log_level"`
	FileLogName string `yaml:"file_log_name"`
	MaxSize     int    `yaml:"max_size"`    // 单个日志文件大小上限（MB）
	MaxBackups  int    `yaml:"max_backups"` // 保留的旧文件数
	MaxAge      int    `yaml:"max_age"`     // 保留天数
	Compress    bool   `yaml:"compress"`
}

// Queue 启动时预先创建的队列
type Queue struct {
	Name             string `yaml:"name"`
	Capacity         int    `yaml:"capacity"`
	EnqueueTimeoutMs int    `yaml:"enqueue_timeout_ms"`
	DequeueTimeoutMs int    `yaml:"dequeue_timeout_ms"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Logger: Logger{
			LogLevel:   "warn",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Load 读取并校验配置文件，path为空时返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logger.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.Logger.LogLevel)
	}

	if c.Logger.MaxSize < 0 || c.Logger.MaxBackups < 0 || c.Logger.MaxAge < 0 {
		return errors.New("logger rotation settings must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Queues))
	for i, q := range c.Queues {
		if q.Name == "" || strings.IndexFunc(q.Name, unicode.IsSpace) >= 0 {
			return errors.Errorf("queues[%d]: invalid name %q", i, q.Name)
		}
		if _, dup := seen[q.Name]; dup {
			return errors.Errorf("queues[%d]: duplicate name %q", i, q.Name)
		}
		seen[q.Name] = struct{}{}

		if q.Capacity <= 0 {
			return errors.Errorf("queue %q: capacity must be positive, got %d", q.Name, q.Capacity)
		}
		if q.EnqueueTimeoutMs < 0 || q.DequeueTimeoutMs < 0 {
			return errors.Errorf("queue %q: timeouts must not be negative", q.Name)
		}
	}
	return nil
}
