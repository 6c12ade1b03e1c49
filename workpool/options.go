package workpool

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WorkPoolOption 是用于配置工作池的函数选项
type WorkPoolOption func(*WorkPoolConfig)

// WorkPoolConfig 包含工作池的所有配置选项
type WorkPoolConfig struct {
	// 工作协程数量
	workers int

	// 任务队列容量，队列满时提交会阻塞
	queueCapacity int

	// 任务默认超时时间
	defaultTaskTimeout time.Duration

	// 提交速率限制，submitRate为0时不限速
	submitRate  rate.Limit
	submitBurst int

	logger *zap.Logger
}

// DefaultConfig 返回工作池的默认配置
func DefaultConfig() WorkPoolConfig {
	return WorkPoolConfig{
		workers:            4,    // 默认工作协程数
		queueCapacity:      1000, // 队列容量
		defaultTaskTimeout: 0,    // 默认无超时
		logger:             zap.NewNop(),
	}
}

// WithWorkers 设置工作协程数量
func WithWorkers(count int) WorkPoolOption {
	return func(config *WorkPoolConfig) {
		if count > 0 {
			config.workers = count
		}
	}
}

// WithQueueCapacity 设置任务队列容量
func WithQueueCapacity(capacity int) WorkPoolOption {
	return func(config *WorkPoolConfig) {
		if capacity > 0 {
			config.queueCapacity = capacity
		}
	}
}

// WithDefaultTaskTimeout 设置任务的默认超时时间
func WithDefaultTaskTimeout(timeout time.Duration) WorkPoolOption {
	return func(config *WorkPoolConfig) {
		if timeout >= 0 {
			config.defaultTaskTimeout = timeout
		}
	}
}

// WithSubmitRate 限制每秒提交的任务数，burst为允许的突发数量
func WithSubmitRate(perSecond float64, burst int) WorkPoolOption {
	return func(config *WorkPoolConfig) {
		if perSecond > 0 {
			config.submitRate = rate.Limit(perSecond)
			config.submitBurst = max(burst, 1)
		}
	}
}

// WithLogger 设置工作池使用的日志记录器
func WithLogger(logger *zap.Logger) WorkPoolOption {
	return func(config *WorkPoolConfig) {
		if logger != nil {
			config.logger = logger
		}
	}
}
