package queue

import "errors"

var (
	// ErrInvalidArgument 表示队列句柄为空或容量不是正数
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfMemory 表示无法为队列分配存储空间
	ErrOutOfMemory = errors.New("out of memory")

	// ErrQueueClosed 表示队列已关闭
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueFull 表示队列已满，无法添加更多元素
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueEmpty 表示队列为空，无法获取元素
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrOperationTimeout 表示操作超时
	ErrOperationTimeout = errors.New("operation timeout")

	// ErrOperationCancelled 表示操作被取消
	ErrOperationCancelled = errors.New("operation cancelled")
)
