package queueservice

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/fyerfyer/bqueue/queue"
)

var (
	// ErrQueueNotFound 表示请求的队列不存在
	ErrQueueNotFound = errors.New("queue not found")

	// ErrQueueExists 表示队列已存在
	ErrQueueExists = errors.New("queue already exists")

	// ErrInvalidName 表示队列名称为空或包含空白字符
	ErrInvalidName = errors.New("invalid queue name")
)

// Message 是服务中队列存放的元素
type Message struct {
	ID         string    `json:"id"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// QueueOptions 表示创建队列时的选项
type QueueOptions struct {
	// 队列容量
	Capacity int
	// 入队超时时间（毫秒），0表示不超时
	EnqueueTimeout int
	// 出队超时时间（毫秒），0表示不超时
	DequeueTimeout int
}

// QueueInfo 包含队列的基本信息
type QueueInfo struct {
	// 队列名称
	Name string
	// 队列状态
	Stats queue.Stats
}

// Service 定义队列服务接口
type Service interface {
	// CreateQueue 创建一个新队列
	CreateQueue(name string, opts QueueOptions) error

	// GetQueue 获取指定名称的队列
	GetQueue(name string) (queue.Queue[Message], error)

	// ListQueues 按名称顺序列出所有队列
	ListQueues() []QueueInfo

	// EnqueueItem 向指定队列添加消息，队列满时阻塞
	EnqueueItem(ctx context.Context, queueName string, body string) (Message, error)

	// TryEnqueueItem 向指定队列添加消息，队列满时立即失败
	TryEnqueueItem(queueName string, body string) (Message, error)

	// DequeueItem 从指定队列获取消息，队列空时阻塞
	DequeueItem(ctx context.Context, queueName string) (Message, error)

	// TryDequeueItem 从指定队列获取消息，队列空时立即失败
	TryDequeueItem(queueName string) (Message, error)

	// PeekItem 查看队头消息但不移除
	PeekItem(queueName string) (Message, error)

	// DumpQueue 从头到尾对每条消息调用inspect
	DumpQueue(queueName string, inspect func(Message)) error

	// ExportQueue 导出队列的可序列化快照
	ExportQueue(queueName string) (QueueData, error)

	// QueueStats 获取队列统计信息
	QueueStats(queueName string) (queue.Stats, error)

	// CloseQueue 关闭队列，剩余消息仍可取出
	CloseQueue(queueName string) error

	// DeleteQueue 删除队列，剩余消息交给release处理
	DeleteQueue(queueName string, release func(Message)) error

	// Close 关闭并销毁所有队列
	Close() error
}
