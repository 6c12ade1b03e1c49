package queue

import (
	"context"
)

// Queue 定义有界阻塞队列的基本操作接口
// 泛型参数T代表队列中存储的元素句柄类型，队列从不检查其内容
type Queue[T any] interface {
	// Enqueue 将元素添加到队列尾部，队列已满时阻塞等待空槽位
	// 队列关闭、上下文取消或超时时返回错误
	Enqueue(ctx context.Context, item T) error

	// Dequeue 从队列头部移除并返回元素，队列为空时阻塞等待
	// 队列关闭后会先取完剩余元素，然后返回ErrQueueClosed
	Dequeue(ctx context.Context) (T, error)

	// TryEnqueue 尝试将元素添加到队列尾部，但不阻塞
	// 如果队列已满，将立即返回ErrQueueFull
	TryEnqueue(item T) error

	// TryDequeue 尝试从队列头部获取元素，但不阻塞
	// 如果队列为空，将立即返回ErrQueueEmpty
	TryDequeue() (T, error)

	// Peek 查看队列头部元素但不移除
	Peek() (T, error)

	// Len 返回队列当前元素数量的快照
	Len() int

	// Capacity 返回队列的固定容量
	Capacity() int

	// IsEmpty 检查队列是否为空
	IsEmpty() bool

	// IsFull 检查队列是否已满
	IsFull() bool

	// Close 关闭队列，不再接受新元素，已有元素可继续出队
	Close() error

	// IsClosed 检查队列是否已关闭
	IsClosed() bool

	// Drain 非阻塞地取出当前所有可用元素
	Drain() []T

	// Dump 在持有锁的情况下从头到尾遍历队列元素，不移除元素
	Dump(inspect func(T))

	// Snapshot 返回队列元素从头到尾的副本
	Snapshot() []T

	// Destroy 关闭并清空队列，对每个剩余元素调用release
	Destroy(release func(T))

	// Stats 返回队列的统计信息
	Stats() Stats
}

var _ Queue[int] = (*BoundedQueue[int])(nil)

// NewQueue 创建一个新的有界阻塞队列
func NewQueue[T any](capacity int, options ...Option) (Queue[T], error) {
	q, err := NewBoundedQueue[T](capacity, options...)
	if err != nil {
		return nil, err
	}
	return q, nil
}
