package queue

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// BoundedQueue 是Queue接口的具体实现，容量在创建时固定
//
// 容量由两个计数信号量划分：freeSlots 表示空槽位，availableItems 表示已填充的槽位。
// 互斥锁只保护环形缓冲区的索引和计数更新，从不跨越等待点持有。
type BoundedQueue[T any] struct {
	// 队列选项
	opts *Options

	// 固定容量
	capacity int

	// 环形缓冲区，创建时按容量一次性分配
	data []T

	// 队列头部索引
	head int

	// 队列尾部索引
	tail int

	// 当前队列大小
	size int

	// 队列是否已关闭，只在持有mu时写入
	closed atomic.Bool

	// 保护环形缓冲区的互斥锁
	mu sync.Mutex

	// 空槽位信号，初始为容量
	freeSlots *semaphore.Weighted

	// 可用元素信号，初始为0
	availableItems *semaphore.Weighted

	// 已写入元素但尚未发出可用信号的入队者
	publishing sync.WaitGroup

	// 关闭时取消，用于唤醒阻塞在信号量上的调用者
	done   context.Context
	cancel context.CancelFunc

	// 事件发射器
	events *EventEmitter

	// 统计计数器
	counters counters

	createdAt time.Time
}

type counters struct {
	enqueued        atomic.Uint64
	dequeued        atomic.Uint64
	enqueueBlocks   atomic.Uint64
	dequeueBlocks   atomic.Uint64
	enqueueTimeouts atomic.Uint64
	dequeueTimeouts atomic.Uint64
	rejected        atomic.Uint64
}

// NewBoundedQueue 创建一个容量为capacity的有界阻塞队列
func NewBoundedQueue[T any](capacity int, options ...Option) (*BoundedQueue[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidArgument
	}
	if capacity > MaxCapacity {
		return nil, ErrOutOfMemory
	}

	opts := DefaultOptions()
	for _, opt := range options {
		opt(opts)
	}

	done, cancel := context.WithCancel(context.Background())

	q := &BoundedQueue[T]{
		opts:           opts,
		capacity:       capacity,
		data:           make([]T, capacity),
		freeSlots:      semaphore.NewWeighted(int64(capacity)),
		availableItems: semaphore.NewWeighted(int64(capacity)),
		done:           done,
		cancel:         cancel,
		events:         NewEventEmitter(opts.EventListeners),
		createdAt:      time.Now(),
	}

	// 可用元素信号从0开始：先占满全部权重，每次入队释放一个单位
	q.availableItems.TryAcquire(int64(capacity))

	return q, nil
}

// Enqueue 将元素添加到队列尾部，如果队列已满则阻塞等待
func (q *BoundedQueue[T]) Enqueue(ctx context.Context, item T) error {
	if q == nil {
		return ErrInvalidArgument
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// 首先检查上下文是否已取消
	if ctx.Err() != nil {
		q.emitError(ErrOperationCancelled)
		return ErrOperationCancelled
	}

	if q.closed.Load() {
		q.reject(ErrQueueClosed)
		return ErrQueueClosed
	}

	err := q.acquire(ctx, q.freeSlots, q.opts.EnqueueTimeout,
		&q.counters.enqueueBlocks, &q.counters.enqueueTimeouts)
	if err != nil {
		if errors.Is(err, ErrQueueClosed) {
			q.reject(err)
		} else {
			q.emitError(err)
		}
		return err
	}

	return q.publish(item)
}

// Dequeue 从队列头部获取元素，如果队列为空则阻塞等待
func (q *BoundedQueue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	if q == nil {
		return zero, ErrInvalidArgument
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if ctx.Err() != nil {
		q.emitError(ErrOperationCancelled)
		return zero, ErrOperationCancelled
	}

	err := q.acquire(ctx, q.availableItems, q.opts.DequeueTimeout,
		&q.counters.dequeueBlocks, &q.counters.dequeueTimeouts)
	if errors.Is(err, ErrQueueClosed) && q.acquireRemaining() {
		err = nil
	}
	if err != nil {
		if !errors.Is(err, ErrQueueClosed) {
			q.emitError(err)
		}
		return zero, err
	}

	return q.take(), nil
}

// TryEnqueue 尝试将元素添加到队列，但不阻塞等待
func (q *BoundedQueue[T]) TryEnqueue(item T) error {
	if q == nil {
		return ErrInvalidArgument
	}

	if q.closed.Load() {
		q.reject(ErrQueueClosed)
		return ErrQueueClosed
	}

	if !q.freeSlots.TryAcquire(1) {
		q.reject(ErrQueueFull)
		return ErrQueueFull
	}

	return q.publish(item)
}

// TryDequeue 尝试从队列获取元素，但不阻塞等待
func (q *BoundedQueue[T]) TryDequeue() (T, error) {
	var zero T
	if q == nil {
		return zero, ErrInvalidArgument
	}

	if q.availableItems.TryAcquire(1) {
		return q.take(), nil
	}

	if q.closed.Load() {
		if q.acquireRemaining() {
			return q.take(), nil
		}
		return zero, ErrQueueClosed
	}
	return zero, ErrQueueEmpty
}

// Peek 查看队列头部元素但不移除
func (q *BoundedQueue[T]) Peek() (T, error) {
	var zero T
	if q == nil {
		return zero, ErrInvalidArgument
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		if q.closed.Load() {
			return zero, ErrQueueClosed
		}
		return zero, ErrQueueEmpty
	}

	return q.data[q.head], nil
}

// Len 返回队列当前元素数量，队列句柄为空时返回-1
// 返回值只是快照，不能用于同步决策
func (q *BoundedQueue[T]) Len() int {
	if q == nil {
		return -1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity 返回队列容量，队列句柄为空时返回-1
func (q *BoundedQueue[T]) Capacity() int {
	if q == nil {
		return -1
	}
	return q.capacity
}

// IsEmpty 检查队列是否为空
func (q *BoundedQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull 检查队列是否已满
func (q *BoundedQueue[T]) IsFull() bool {
	if q == nil {
		return false
	}
	return q.Len() >= q.capacity
}

// Close 关闭队列
// 阻塞中和之后的入队立即失败，出队会先取完剩余元素
func (q *BoundedQueue[T]) Close() error {
	if q == nil {
		return ErrInvalidArgument
	}

	q.mu.Lock()
	if q.closed.Load() {
		q.mu.Unlock()
		return nil // 已经关闭
	}
	q.closed.Store(true)
	size := q.size
	q.mu.Unlock()

	// 唤醒所有等待者
	q.cancel()

	if q.events.enabled() {
		q.events.Emit(Event{Type: EventClose, Size: size})
	}
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *BoundedQueue[T]) IsClosed() bool {
	if q == nil {
		return true
	}
	return q.closed.Load()
}

// Drain 按出队协议取出当前所有可用元素，不阻塞
func (q *BoundedQueue[T]) Drain() []T {
	if q == nil {
		return nil
	}

	var items []T
	for q.availableItems.TryAcquire(1) {
		items = append(items, q.take())
	}
	return items
}

// Dump 从头到尾对每个元素调用inspect，不移除元素
// 遍历期间一直持有队列锁，inspect中不能对同一队列入队或出队，否则会死锁
func (q *BoundedQueue[T]) Dump(inspect func(T)) {
	if q == nil || inspect == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i < q.size; i++ {
		inspect(q.data[(q.head+i)%q.capacity])
	}
}

// Snapshot 返回队列元素从头到尾的副本
func (q *BoundedQueue[T]) Snapshot() []T {
	if q == nil {
		return nil
	}

	items := make([]T, 0, q.Len())
	q.Dump(func(item T) {
		items = append(items, item)
	})
	return items
}

// Destroy 关闭队列并按出队协议清空剩余元素，对每个非空元素调用一次release
// 不应与其他消费者并发调用：被并发取走的元素不会交给release
func (q *BoundedQueue[T]) Destroy(release func(T)) {
	if q == nil {
		return
	}

	_ = q.Close()

	// 等待已写入的入队者发出可用信号，确保剩余元素都能被取到
	q.publishing.Wait()

	for q.availableItems.TryAcquire(1) {
		item := q.take()
		if release != nil && !isNilHandle(item) {
			release(item)
		}
	}

	q.mu.Lock()
	// 只有在没有消费者持有可用信号时才能释放缓冲区
	if q.size == 0 {
		q.data = nil
		q.head = 0
		q.tail = 0
	}
	q.mu.Unlock()

	if q.events.enabled() {
		q.events.Emit(Event{Type: EventDestroy})
	}
}

// Stats 返回队列的统计信息
func (q *BoundedQueue[T]) Stats() Stats {
	if q == nil {
		return Stats{}
	}

	return Stats{
		CreatedAt:       q.createdAt,
		Capacity:        q.capacity,
		Size:            q.Len(),
		Enqueued:        q.counters.enqueued.Load(),
		Dequeued:        q.counters.dequeued.Load(),
		EnqueueBlocks:   q.counters.enqueueBlocks.Load(),
		DequeueBlocks:   q.counters.dequeueBlocks.Load(),
		EnqueueTimeouts: q.counters.enqueueTimeouts.Load(),
		DequeueTimeouts: q.counters.dequeueTimeouts.Load(),
		Rejected:        q.counters.rejected.Load(),
		Closed:          q.closed.Load(),
	}
}

// acquire 从信号量获取一个单位，必要时阻塞
// 等待可以被调用方上下文、超时或队列关闭打断，失败时信号量保持不变
func (q *BoundedQueue[T]) acquire(ctx context.Context, sem *semaphore.Weighted,
	timeout time.Duration, blocks, timeouts *atomic.Uint64) error {
	if sem.TryAcquire(1) {
		return nil
	}
	if q.closed.Load() {
		return ErrQueueClosed
	}

	blocks.Add(1)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		waitCtx, cancelTimeout = context.WithTimeout(waitCtx, timeout)
		defer cancelTimeout()
	}

	// 队列关闭时取消本次等待
	stop := context.AfterFunc(q.done, cancel)
	defer stop()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		switch {
		case q.done.Err() != nil:
			return ErrQueueClosed
		case ctx.Err() != nil:
			return ErrOperationCancelled
		default:
			timeouts.Add(1)
			return ErrOperationTimeout
		}
	}
	return nil
}

// acquireRemaining 在队列关闭后尝试获取剩余元素的可用信号
// 先等待所有已写入元素的入队者发出信号，关闭后不会再有新的写入
func (q *BoundedQueue[T]) acquireRemaining() bool {
	q.publishing.Wait()
	return q.availableItems.TryAcquire(1)
}

// publish 在已持有一个空槽位的前提下写入元素并发出可用信号
func (q *BoundedQueue[T]) publish(item T) error {
	q.mu.Lock()
	if q.closed.Load() {
		q.mu.Unlock()
		// 归还已占用的空槽位，避免有效容量永久缩小
		q.freeSlots.Release(1)
		q.reject(ErrQueueClosed)
		return ErrQueueClosed
	}

	q.publishing.Add(1)
	q.data[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.size++
	size := q.size
	q.mu.Unlock()

	q.availableItems.Release(1)
	q.publishing.Done()

	q.counters.enqueued.Add(1)

	if q.events.enabled() {
		q.events.Emit(Event{Type: EventEnqueue, Item: item, Size: size})
		if size == q.capacity {
			q.events.Emit(Event{Type: EventFull, Size: size})
		}
	}
	return nil
}

// take 在已持有一个可用元素信号的前提下取出队头元素并归还空槽位
func (q *BoundedQueue[T]) take() T {
	var zero T

	q.mu.Lock()
	item := q.data[q.head]
	q.data[q.head] = zero // 清空引用，所有权转移给调用方
	q.head = (q.head + 1) % q.capacity
	q.size--
	size := q.size
	q.mu.Unlock()

	q.freeSlots.Release(1)

	q.counters.dequeued.Add(1)

	if q.events.enabled() {
		q.events.Emit(Event{Type: EventDequeue, Item: item, Size: size})
		if size == 0 {
			q.events.Emit(Event{Type: EventEmpty, Size: 0})
		}
	}
	return item
}

func (q *BoundedQueue[T]) reject(err error) {
	q.counters.rejected.Add(1)
	q.emitError(err)
}

func (q *BoundedQueue[T]) emitError(err error) {
	if q.events.enabled() {
		q.events.Emit(Event{Type: EventError, Err: err})
	}
}

// isNilHandle 报告元素句柄是否为空
func isNilHandle(item any) bool {
	if item == nil {
		return true
	}
	v := reflect.ValueOf(item)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
