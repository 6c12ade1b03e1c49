package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// TaskStatus 表示任务的当前状态
type TaskStatus int

const (
	// TaskStatusPending 表示任务在队列中等待执行
	TaskStatusPending TaskStatus = iota
	// TaskStatusRunning 表示任务正在执行中
	TaskStatusRunning
	// TaskStatusCompleted 表示任务已成功完成
	TaskStatusCompleted
	// TaskStatusFailed 表示任务执行失败
	TaskStatusFailed
	// TaskStatusCanceled 表示任务被取消
	TaskStatusCanceled
)

// String 返回任务状态的字符串表示
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "Pending"
	case TaskStatusRunning:
		return "Running"
	case TaskStatusCompleted:
		return "Completed"
	case TaskStatusFailed:
		return "Failed"
	case TaskStatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

func (s TaskStatus) terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCanceled
}

// Task 是工作池中执行的任务接口
type Task interface {
	// Execute 执行任务并返回结果或错误
	Execute(ctx context.Context) (any, error)
}

// TaskFunc 是一个实现了Task接口的函数类型
type TaskFunc func(ctx context.Context) (any, error)

// Execute 实现Task接口
func (f TaskFunc) Execute(ctx context.Context) (any, error) {
	return f(ctx)
}

// TaskOption 是用于配置任务的函数选项
type TaskOption func(*taskConfig)

type taskConfig struct {
	timeout time.Duration
}

// WithTimeout 设置任务的超时时间，从任务开始执行时计算
func WithTimeout(timeout time.Duration) TaskOption {
	return func(tc *taskConfig) {
		tc.timeout = timeout
	}
}

// TaskHandle 表示已提交到工作池的任务，可用于检查状态和获取结果
type TaskHandle interface {
	// ID 返回任务的唯一标识符
	ID() string
	// Status 返回任务的当前状态
	Status() TaskStatus
	// Result 返回任务的结果，如果任务尚未结束则会阻塞
	Result() (any, error)
	// Cancel 取消任务
	Cancel() error
	// Wait 等待任务结束
	Wait(ctx context.Context) error
}

// taskHandle 实现了TaskHandle接口，是任务队列中存放的元素
type taskHandle struct {
	id         string
	task       Task
	config     taskConfig
	status     TaskStatus
	result     any
	err        error
	done       chan struct{}
	doneClosed bool
	ctx        context.Context
	cancel     context.CancelFunc
	enqueuedAt time.Time
	startTime  time.Time
	endTime    time.Time
	mu         sync.RWMutex
}

func newTaskHandle(id string, task Task, ctx context.Context, options ...TaskOption) *taskHandle {
	var config taskConfig
	for _, option := range options {
		option(&config)
	}

	taskCtx, cancel := context.WithCancel(ctx)

	return &taskHandle{
		id:         id,
		task:       task,
		config:     config,
		status:     TaskStatusPending,
		done:       make(chan struct{}),
		ctx:        taskCtx,
		cancel:     cancel,
		enqueuedAt: time.Now(),
	}
}

// ID 返回任务的唯一标识符
func (h *taskHandle) ID() string {
	return h.id
}

// Status 返回任务的当前状态
func (h *taskHandle) Status() TaskStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Result 返回任务的结果，如果任务尚未结束则会阻塞
func (h *taskHandle) Result() (any, error) {
	<-h.done
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.err
}

// Cancel 取消任务
// 排队中的任务不会再被执行，运行中的任务通过上下文收到取消信号
func (h *taskHandle) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.terminal() {
		return fmt.Errorf("task already in terminal state: %s", h.status)
	}

	h.status = TaskStatusCanceled
	h.err = context.Canceled
	h.cancel()
	h.closeDone()

	return nil
}

// Wait 等待任务结束
func (h *taskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start 将任务标记为运行中并返回执行用的上下文
// 任务已被取消时返回false
func (h *taskHandle) start() (context.Context, context.CancelFunc, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != TaskStatusPending {
		return nil, nil, false
	}

	h.status = TaskStatusRunning
	h.startTime = time.Now()

	if h.config.timeout > 0 {
		ctx, cancel := context.WithTimeout(h.ctx, h.config.timeout)
		return ctx, cancel, true
	}
	return h.ctx, func() {}, true
}

// setCompleted 记录任务结果并返回最终状态
func (h *taskHandle) setCompleted(result any, err error) TaskStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.endTime = time.Now()
	if h.status.terminal() {
		// 执行期间被取消，保留取消状态
		return h.status
	}

	h.result = result
	h.err = err

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		h.status = TaskStatusCanceled
	case err != nil:
		h.status = TaskStatusFailed
	default:
		h.status = TaskStatusCompleted
	}

	h.cancel()
	h.closeDone()
	return h.status
}

// abandon 放弃一个仍在队列中的任务，返回是否由本次调用完成了取消
func (h *taskHandle) abandon(reason error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.terminal() {
		return false
	}

	h.status = TaskStatusCanceled
	h.err = reason
	h.endTime = time.Now()
	h.cancel()
	h.closeDone()
	return true
}

// closeDone 需持有mu
func (h *taskHandle) closeDone() {
	if !h.doneClosed {
		close(h.done)
		h.doneClosed = true
	}
}

// executionTime 返回任务的执行时间
func (h *taskHandle) executionTime() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.startTime.IsZero() {
		return 0
	}

	if h.endTime.IsZero() {
		return time.Since(h.startTime)
	}

	return h.endTime.Sub(h.startTime)
}
