package workpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyerfyer/bqueue/queue"
)

var (
	// ErrPoolNotRunning 表示工作池未处于运行状态
	ErrPoolNotRunning = errors.New("work pool is not running")

	// ErrRateLimited 表示提交速率超过限制
	ErrRateLimited = errors.New("task submit rate limited")

	// ErrPoolShutdown 表示任务因工作池关闭而未被执行
	ErrPoolShutdown = errors.New("work pool shut down before task ran")
)

// WorkPoolStatus 工作池的状态
type WorkPoolStatus int

const (
	// StatusIdle 空闲状态
	StatusIdle WorkPoolStatus = iota
	// StatusRunning 运行状态
	StatusRunning
	// StatusShuttingDown 正在关闭
	StatusShuttingDown
	// StatusStopped 已停止
	StatusStopped
)

// String 返回工作池状态的字符串表示
func (s WorkPoolStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusShuttingDown:
		return "ShuttingDown"
	case StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// WorkPool 管理固定数量的工作协程，从有界队列中取出任务执行
// 队列满时Submit阻塞，生产者因此受到背压
type WorkPool struct {
	config WorkPoolConfig
	logger *zap.Logger

	// 任务队列
	taskQueue *queue.BoundedQueue[*taskHandle]

	// 提交限速器，未配置时为nil
	limiter *rate.Limiter

	// 状态控制
	status     WorkPoolStatus
	statusLock sync.RWMutex

	// 工作协程控制
	workerWg    sync.WaitGroup
	activeCount atomic.Int32 // 当前执行任务中的协程数
	workerCount atomic.Int32 // 总工作协程数

	metrics *Metrics

	// 工作池上下文，取消后所有任务收到取消信号
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建一个新的工作池
func New(options ...WorkPoolOption) (*WorkPool, error) {
	config := DefaultConfig()
	for _, option := range options {
		option(&config)
	}

	logger := config.logger.Named("workpool")

	taskQueue, err := queue.NewBoundedQueue[*taskHandle](config.queueCapacity,
		queue.WithEventListener(queue.NewLogListener(logger.Named("queue"))))
	if err != nil {
		return nil, errors.Wrapf(err, "create task queue with capacity %d", config.queueCapacity)
	}

	ctx, cancel := context.WithCancel(context.Background())

	wp := &WorkPool{
		config:    config,
		logger:    logger,
		taskQueue: taskQueue,
		status:    StatusIdle,
		metrics:   newMetrics(),
		ctx:       ctx,
		cancel:    cancel,
	}

	if config.submitRate > 0 {
		wp.limiter = rate.NewLimiter(config.submitRate, config.submitBurst)
	}

	return wp, nil
}

// Start 启动工作池，开始处理任务
// 已停止的工作池不能再次启动
func (wp *WorkPool) Start() error {
	wp.statusLock.Lock()
	defer wp.statusLock.Unlock()

	switch wp.status {
	case StatusRunning:
		return errors.New("work pool already running")
	case StatusShuttingDown, StatusStopped:
		return errors.Wrapf(ErrPoolNotRunning, "cannot restart, current status: %s", wp.status)
	}

	wp.status = StatusRunning

	for i := 0; i < wp.config.workers; i++ {
		wp.addWorker()
	}

	wp.logger.Info("work pool started",
		zap.Int("workers", wp.config.workers),
		zap.Int("queue_capacity", wp.config.queueCapacity))

	return nil
}

// Shutdown 优雅关闭工作池
// 关闭任务队列后工作协程会先执行完剩余任务再退出；ctx到期时取消运行中的任务，
// 并销毁队列，仍在排队的任务以ErrPoolShutdown结束
func (wp *WorkPool) Shutdown(ctx context.Context) error {
	wp.statusLock.Lock()
	if wp.status == StatusStopped || wp.status == StatusShuttingDown {
		wp.statusLock.Unlock()
		return nil
	}
	wp.status = StatusShuttingDown
	wp.statusLock.Unlock()

	wp.logger.Info("work pool shutting down", zap.Int("queued", wp.taskQueue.Len()))

	// 拒绝新任务，已排队的任务仍会被取出
	_ = wp.taskQueue.Close()

	doneCh := make(chan struct{})
	go func() {
		wp.workerWg.Wait()
		close(doneCh)
	}()

	var err error
	select {
	case <-doneCh:
	case <-ctx.Done():
		wp.cancel()

		abandoned := 0
		wp.taskQueue.Destroy(func(h *taskHandle) {
			if wp.abandon(h) {
				abandoned++
			}
		})

		wp.logger.Error("work pool shutdown deadline exceeded",
			zap.Int("abandoned", abandoned),
			zap.Int32("workers", wp.workerCount.Load()))
		err = errors.Wrap(ctx.Err(), "shutdown work pool")
	}

	wp.cancel()

	wp.statusLock.Lock()
	wp.status = StatusStopped
	wp.statusLock.Unlock()

	if err == nil {
		wp.logger.Info("work pool shutdown complete")
	}
	return err
}

// Submit 提交一个任务到工作池
// 任务队列已满时阻塞，直到有空位、ctx结束或工作池关闭
func (wp *WorkPool) Submit(ctx context.Context, task Task, options ...TaskOption) (TaskHandle, error) {
	if err := wp.checkRunning(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if wp.limiter != nil {
		if err := wp.limiter.Wait(ctx); err != nil {
			wp.metrics.taskRejected()
			return nil, errors.Wrap(err, "wait for submit rate limiter")
		}
	}

	handle := wp.newHandle(task, options...)
	if err := wp.taskQueue.Enqueue(ctx, handle); err != nil {
		return nil, wp.submitFailed(handle, err)
	}

	wp.submitted(handle)
	return handle, nil
}

// TrySubmit 尝试提交任务，队列已满时立即返回queue.ErrQueueFull
func (wp *WorkPool) TrySubmit(task Task, options ...TaskOption) (TaskHandle, error) {
	if err := wp.checkRunning(); err != nil {
		return nil, err
	}

	if wp.limiter != nil && !wp.limiter.Allow() {
		wp.metrics.taskRejected()
		return nil, ErrRateLimited
	}

	handle := wp.newHandle(task, options...)
	if err := wp.taskQueue.TryEnqueue(handle); err != nil {
		return nil, wp.submitFailed(handle, err)
	}

	wp.submitted(handle)
	return handle, nil
}

// Status 返回工作池的当前状态
func (wp *WorkPool) Status() WorkPoolStatus {
	wp.statusLock.RLock()
	defer wp.statusLock.RUnlock()
	return wp.status
}

// GetMetrics 返回工作池的指标快照
func (wp *WorkPool) GetMetrics() Metrics {
	m := wp.metrics.Snapshot()
	m.QueuedTasks = uint64(max(wp.taskQueue.Len(), 0))
	return m
}

// WorkerCount 返回当前工作协程数量
func (wp *WorkPool) WorkerCount() int {
	return int(wp.workerCount.Load())
}

// QueueSize 返回当前队列中等待的任务数量
func (wp *WorkPool) QueueSize() int {
	return max(wp.taskQueue.Len(), 0)
}

// QueueCapacity 返回任务队列容量
func (wp *WorkPool) QueueCapacity() int {
	return wp.taskQueue.Capacity()
}

// TaskCount 返回成功提交到工作池的任务总数
func (wp *WorkPool) TaskCount() uint64 {
	return atomic.LoadUint64(&wp.metrics.TotalTasks)
}

func (wp *WorkPool) checkRunning() error {
	wp.statusLock.RLock()
	defer wp.statusLock.RUnlock()

	if wp.status != StatusRunning {
		return errors.Wrapf(ErrPoolNotRunning, "current status: %s", wp.status)
	}
	return nil
}

func (wp *WorkPool) newHandle(task Task, options ...TaskOption) *taskHandle {
	// 合并默认超时选项，显式指定的超时优先
	if wp.config.defaultTaskTimeout > 0 {
		options = append([]TaskOption{WithTimeout(wp.config.defaultTaskTimeout)}, options...)
	}
	return newTaskHandle(uuid.New().String(), task, wp.ctx, options...)
}

func (wp *WorkPool) submitted(handle *taskHandle) {
	wp.metrics.taskSubmitted()

	if ce := wp.logger.Check(zap.DebugLevel, "task submitted"); ce != nil {
		ce.Write(zap.String("task_id", handle.id), zap.Int("queued", wp.taskQueue.Len()))
	}
}

func (wp *WorkPool) submitFailed(handle *taskHandle, err error) error {
	handle.cancel()
	wp.metrics.taskRejected()

	if errors.Is(err, queue.ErrQueueClosed) {
		return errors.Wrapf(ErrPoolNotRunning, "submit task %s", handle.id)
	}
	return errors.Wrapf(err, "submit task %s", handle.id)
}

func (wp *WorkPool) abandon(h *taskHandle) bool {
	if !h.abandon(ErrPoolShutdown) {
		return false
	}
	wp.metrics.taskCanceled()
	return true
}

func (wp *WorkPool) addWorker() {
	wp.workerWg.Add(1)
	total := wp.workerCount.Add(1)
	wp.metrics.workerStatusChanged(wp.activeCount.Load(), total)

	go wp.runWorker()
}

// runWorker 工作协程主循环，阻塞在队列出队上，队列关闭并取空后退出
func (wp *WorkPool) runWorker() {
	defer func() {
		total := wp.workerCount.Add(-1)
		wp.metrics.workerStatusChanged(wp.activeCount.Load(), total)
		wp.workerWg.Done()
	}()

	for {
		task, err := wp.taskQueue.Dequeue(wp.ctx)
		if err != nil {
			return
		}

		// 工作池已被强制关闭，剩余任务不再执行
		if wp.ctx.Err() != nil {
			wp.abandon(task)
			continue
		}

		wp.execute(task)
	}
}

func (wp *WorkPool) execute(task *taskHandle) {
	ctx, cancel, ok := task.start()
	if !ok {
		// 排队期间已被取消
		wp.metrics.taskCanceled()
		return
	}
	defer cancel()

	active := wp.activeCount.Add(1)
	wp.metrics.workerStatusChanged(active, wp.workerCount.Load())
	wp.metrics.taskStarted(time.Since(task.enqueuedAt))

	result, err := runTask(ctx, task.task)
	status := task.setCompleted(result, err)

	processingTime := task.executionTime()
	wp.metrics.taskFinished(processingTime, status)

	if err != nil && status == TaskStatusFailed {
		wp.logger.Warn("task failed",
			zap.String("task_id", task.id),
			zap.Duration("elapsed", processingTime),
			zap.Error(err))
	} else if ce := wp.logger.Check(zap.DebugLevel, "task finished"); ce != nil {
		ce.Write(zap.String("task_id", task.id),
			zap.Stringer("status", status),
			zap.Duration("elapsed", processingTime))
	}

	active = wp.activeCount.Add(-1)
	wp.metrics.workerStatusChanged(active, wp.workerCount.Load())
}

// runTask 执行任务，任务中的panic转换为错误
func runTask(ctx context.Context, task Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}
