package queue

import "time"

// MaxCapacity 是单个队列允许的最大容量，环形缓冲区在创建时一次性分配
const MaxCapacity = 1 << 24

// Options 定义队列的配置选项
type Options struct {
	// 入队操作的默认超时时间，0表示永不超时
	EnqueueTimeout time.Duration

	// 出队操作的默认超时时间，0表示永不超时
	DequeueTimeout time.Duration

	// 事件监听器列表
	EventListeners []EventListener
}

// Option 函数类型用于设置队列选项
type Option func(*Options)

// DefaultOptions 返回默认的队列选项
func DefaultOptions() *Options {
	return &Options{
		EnqueueTimeout: 0, // 默认不超时
		DequeueTimeout: 0, // 默认不超时
		EventListeners: nil,
	}
}

// WithEnqueueTimeout 设置入队超时
func WithEnqueueTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout < 0 {
			timeout = 0
		}
		o.EnqueueTimeout = timeout
	}
}

// WithDequeueTimeout 设置出队超时
func WithDequeueTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout < 0 {
			timeout = 0
		}
		o.DequeueTimeout = timeout
	}
}

// WithEventListener 添加事件监听器
func WithEventListener(listener EventListener) Option {
	return func(o *Options) {
		if listener == nil {
			return
		}
		o.EventListeners = append(o.EventListeners, listener)
	}
}

// WithEventListeners 设置事件监听器列表
func WithEventListeners(listeners []EventListener) Option {
	return func(o *Options) {
		o.EventListeners = listeners
	}
}
