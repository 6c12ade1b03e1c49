package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestQueue[T any](t *testing.T, capacity int, options ...Option) *BoundedQueue[T] {
	t.Helper()
	q, err := NewBoundedQueue[T](capacity, options...)
	if err != nil {
		t.Fatalf("NewBoundedQueue(%d) failed: %v", capacity, err)
	}
	return q
}

func TestBoundedQueue_BasicOperations(t *testing.T) {
	q := newTestQueue[int](t, 5)

	// 测试入队和出队
	for i := 1; i <= 3; i++ {
		if err := q.TryEnqueue(i); err != nil {
			t.Fatalf("TryEnqueue(%d) failed: %v", i, err)
		}
	}

	// 检查队列大小
	if q.Len() != 3 {
		t.Fatalf("Expected size 3, got %d", q.Len())
	}

	// 检查Peek
	if val, err := q.Peek(); err != nil || val != 1 {
		t.Fatalf("Peek() expected 1, got %v (err: %v)", val, err)
	}

	// 测试出队
	for i := 1; i <= 3; i++ {
		val, err := q.TryDequeue()
		if err != nil {
			t.Fatalf("TryDequeue() failed: %v", err)
		}
		if val != i {
			t.Fatalf("Expected %d, got %d", i, val)
		}
	}

	if !q.IsEmpty() {
		t.Fatal("Queue should be empty")
	}

	// 测试空队列出队
	_, err := q.TryDequeue()
	if !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("Expected ErrQueueEmpty, got %v", err)
	}
}

func TestBoundedQueue_BoundedCapacity(t *testing.T) {
	capacity := 3
	q := newTestQueue[string](t, capacity)

	// 填充队列
	for i := 0; i < capacity; i++ {
		if err := q.TryEnqueue("item" + string(rune('A'+i))); err != nil {
			t.Fatalf("TryEnqueue failed: %v", err)
		}
	}

	if !q.IsFull() {
		t.Fatal("Queue should be full")
	}

	// 尝试向已满队列添加元素
	err := q.TryEnqueue("overflow")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	val, err := q.TryDequeue()
	if err != nil {
		t.Fatalf("TryDequeue failed: %v", err)
	}
	if val != "itemA" {
		t.Fatalf("Expected itemA, got %v", val)
	}

	if q.IsFull() {
		t.Fatal("Queue should not be full")
	}

	// 应该可以再添加一个元素
	if err := q.TryEnqueue("newItem"); err != nil {
		t.Fatalf("TryEnqueue failed: %v", err)
	}
}

func TestBoundedQueue_WrapAround(t *testing.T) {
	q := newTestQueue[int](t, 3)
	ctx := context.Background()

	// 反复入队出队，使头尾索引多次绕回
	next, want := 0, 0
	for round := 0; round < 10; round++ {
		for i := 0; i < 2; i++ {
			if err := q.Enqueue(ctx, next); err != nil {
				t.Fatalf("Enqueue(%d) failed: %v", next, err)
			}
			next++
		}
		for i := 0; i < 2; i++ {
			val, err := q.Dequeue(ctx)
			if err != nil {
				t.Fatalf("Dequeue() failed: %v", err)
			}
			if val != want {
				t.Fatalf("Expected %d, got %d", want, val)
			}
			want++
		}
	}

	if q.Len() != 0 {
		t.Fatalf("Expected size 0, got %d", q.Len())
	}
}

func TestBoundedQueue_Close(t *testing.T) {
	q := newTestQueue[int](t, 5)

	for i := 1; i <= 3; i++ {
		if err := q.TryEnqueue(i); err != nil {
			t.Fatalf("TryEnqueue(%d) failed: %v", i, err)
		}
	}

	if err := q.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// 重复关闭不报错
	if err := q.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}

	// 尝试入队，应该失败
	if err := q.TryEnqueue(4); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Expected ErrQueueClosed, got %v", err)
	}
	if err := q.Enqueue(context.Background(), 4); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Expected ErrQueueClosed, got %v", err)
	}

	// 应该仍可以从队列中取出已有元素
	for i := 1; i <= 3; i++ {
		val, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("Dequeue() failed: %v", err)
		}
		if val != i {
			t.Fatalf("Expected %d, got %d", i, val)
		}
	}

	// 队列空且关闭，出队应返回ErrQueueClosed而不是阻塞
	_, err := q.Dequeue(context.Background())
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Expected ErrQueueClosed, got %v", err)
	}
	_, err = q.TryDequeue()
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Expected ErrQueueClosed, got %v", err)
	}

	if !q.IsClosed() {
		t.Fatal("IsClosed() should return true")
	}
}

func TestBoundedQueue_BlockingEnqueueDequeue(t *testing.T) {
	q := newTestQueue[int](t, 3)
	ctx := context.Background()

	// 填满队列
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}

	// 启动一个goroutine阻塞入队
	var enqueueErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		enqueueErr = q.Enqueue(ctx, 4) // 应该阻塞
	}()

	// 稍等一会，确保goroutine已经阻塞
	time.Sleep(100 * time.Millisecond)

	// 出队一个元素，应该解除阻塞
	val, err := q.Dequeue(ctx)
	if err != nil || val != 1 {
		t.Fatalf("Dequeue() expected 1, got %v (err: %v)", val, err)
	}

	wg.Wait()

	if enqueueErr != nil {
		t.Fatalf("Blocking Enqueue failed: %v", enqueueErr)
	}

	if !q.IsFull() {
		t.Fatal("Queue should be full again")
	}

	// 验证队列内容：应该是2, 3, 4
	expected := []int{2, 3, 4}
	for i, exp := range expected {
		val, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue()[%d] failed: %v", i, err)
		}
		if val != exp {
			t.Fatalf("Expected %d, got %d", exp, val)
		}
	}
}

func TestBoundedQueue_Timeout(t *testing.T) {
	timeout := 200 * time.Millisecond
	q := newTestQueue[int](t, 1,
		WithEnqueueTimeout(timeout),
		WithDequeueTimeout(timeout),
	)
	ctx := context.Background()

	if err := q.TryEnqueue(1); err != nil {
		t.Fatalf("TryEnqueue failed: %v", err)
	}

	// 尝试入队，应该超时
	startTime := time.Now()
	err := q.Enqueue(ctx, 2)
	elapsed := time.Since(startTime)

	if !errors.Is(err, ErrOperationTimeout) {
		t.Fatalf("Expected ErrOperationTimeout, got %v", err)
	}
	if elapsed < timeout {
		t.Fatalf("Timeout too short: %v", elapsed)
	}

	// 清空队列
	q.Drain()

	// 尝试出队空队列，应该超时
	startTime = time.Now()
	_, err = q.Dequeue(ctx)
	elapsed = time.Since(startTime)

	if !errors.Is(err, ErrOperationTimeout) {
		t.Fatalf("Expected ErrOperationTimeout, got %v", err)
	}
	if elapsed < timeout {
		t.Fatalf("Timeout too short: %v", elapsed)
	}

	stats := q.Stats()
	if stats.EnqueueTimeouts != 1 || stats.DequeueTimeouts != 1 {
		t.Fatalf("Expected 1 enqueue and 1 dequeue timeout, got %d and %d",
			stats.EnqueueTimeouts, stats.DequeueTimeouts)
	}
}

func TestBoundedQueue_ContextCancel(t *testing.T) {
	q := newTestQueue[int](t, 1)

	if err := q.TryEnqueue(1); err != nil {
		t.Fatalf("TryEnqueue failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var enqueueErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		enqueueErr = q.Enqueue(ctx, 2) // 应该阻塞
	}()

	time.Sleep(100 * time.Millisecond)

	cancel()
	wg.Wait()

	if !errors.Is(enqueueErr, ErrOperationCancelled) {
		t.Fatalf("Expected ErrOperationCancelled, got %v", enqueueErr)
	}

	// 已取消的上下文立即失败
	if _, err := q.Dequeue(ctx); !errors.Is(err, ErrOperationCancelled) {
		t.Fatalf("Expected ErrOperationCancelled, got %v", err)
	}

	// 取消不应改变队列内容
	if val, err := q.TryDequeue(); err != nil || val != 1 {
		t.Fatalf("TryDequeue() expected 1, got %v (err: %v)", val, err)
	}
}

func TestBoundedQueue_ConcurrentAccess(t *testing.T) {
	q := newTestQueue[int](t, 16)
	ctx := context.Background()

	producers := 5
	consumers := 5
	itemsPerProducer := 1000
	totalItems := producers * itemsPerProducer

	var consumedCount atomic.Int32
	var overCapacity atomic.Bool
	consumedItems := sync.Map{}

	// 启动消费者，队列关闭且取空后退出
	var consumerWg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				item, err := q.Dequeue(ctx)
				if errors.Is(err, ErrQueueClosed) {
					return
				}
				if err != nil {
					t.Errorf("Dequeue failed: %v", err)
					return
				}
				if _, loaded := consumedItems.LoadOrStore(item, true); loaded {
					t.Errorf("Item %d consumed more than once", item)
				}
				consumedCount.Add(1)
				if n := q.Len(); n < 0 || n > q.Capacity() {
					overCapacity.Store(true)
				}
			}
		}()
	}

	// 启动生产者
	var producerWg sync.WaitGroup
	for i := 0; i < producers; i++ {
		producerWg.Add(1)
		go func(producerID int) {
			defer producerWg.Done()
			baseValue := producerID * itemsPerProducer
			for j := 0; j < itemsPerProducer; j++ {
				if err := q.Enqueue(ctx, baseValue+j); err != nil {
					t.Errorf("Producer %d: enqueue error: %v", producerID, err)
					return
				}
			}
		}(i)
	}

	producerWg.Wait()
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		consumerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumers, consumed %d/%d", consumedCount.Load(), totalItems)
	}

	if consumed := int(consumedCount.Load()); consumed != totalItems {
		t.Errorf("Expected %d consumed items, got %d", totalItems, consumed)
	}

	var uniqueCount int
	consumedItems.Range(func(_, _ any) bool {
		uniqueCount++
		return true
	})
	if uniqueCount != totalItems {
		t.Errorf("Expected %d unique consumed items, got %d", totalItems, uniqueCount)
	}

	if overCapacity.Load() {
		t.Error("Queue length left the [0, capacity] range")
	}
}

func TestBoundedQueue_Stats(t *testing.T) {
	q := newTestQueue[int](t, 3)
	ctx := context.Background()

	q.Enqueue(ctx, 1)
	q.Enqueue(ctx, 2)
	q.Enqueue(ctx, 3)

	// 这会阻塞并被取消
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_ = q.Enqueue(ctx2, 4)

	_ = q.TryEnqueue(5) // 应该得到 ErrQueueFull

	val, _ := q.Dequeue(ctx)
	if val != 1 {
		t.Fatalf("Expected 1, got %d", val)
	}

	stats := q.Stats()

	if stats.Size != 2 {
		t.Fatalf("Expected size 2, got %d", stats.Size)
	}
	if stats.Capacity != 3 {
		t.Fatalf("Expected capacity 3, got %d", stats.Capacity)
	}
	if stats.Enqueued != 3 {
		t.Fatalf("Expected 3 enqueued operations, got %d", stats.Enqueued)
	}
	if stats.Dequeued != 1 {
		t.Fatalf("Expected 1 dequeued operation, got %d", stats.Dequeued)
	}
	if stats.EnqueueBlocks != 1 {
		t.Fatalf("Expected 1 enqueue block, got %d", stats.EnqueueBlocks)
	}
	if stats.Rejected != 1 {
		t.Fatalf("Expected 1 rejected operation, got %d", stats.Rejected)
	}
	if stats.Utilization() != float64(2)/float64(3) {
		t.Fatalf("Expected utilization %.2f, got %.2f", float64(2)/float64(3), stats.Utilization())
	}
}

func TestBoundedQueue_Events(t *testing.T) {
	var enqueueCalls, dequeueCalls, emptyCalls, fullCalls, closeCalls, destroyCalls, errorCalls int

	listener := func(evt Event) {
		switch evt.Type {
		case EventEnqueue:
			enqueueCalls++
		case EventDequeue:
			dequeueCalls++
		case EventEmpty:
			emptyCalls++
		case EventFull:
			fullCalls++
		case EventClose:
			closeCalls++
		case EventDestroy:
			destroyCalls++
		case EventError:
			errorCalls++
		}
	}

	q := newTestQueue[int](t, 2, WithEventListener(listener))
	ctx := context.Background()

	// 入队两个元素，填满队列
	q.Enqueue(ctx, 1)
	q.Enqueue(ctx, 2)

	// 尝试入队第三个元素（队列已满）
	err := q.TryEnqueue(3)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	// 出队所有元素，清空队列
	q.Dequeue(ctx)
	q.Dequeue(ctx)

	q.Close()
	q.Destroy(nil)

	if enqueueCalls != 2 {
		t.Fatalf("Expected 2 enqueue events, got %d", enqueueCalls)
	}
	if dequeueCalls != 2 {
		t.Fatalf("Expected 2 dequeue events, got %d", dequeueCalls)
	}
	if fullCalls != 1 {
		t.Fatalf("Expected 1 full event, got %d", fullCalls)
	}
	if emptyCalls != 1 {
		t.Fatalf("Expected 1 empty event, got %d", emptyCalls)
	}
	if closeCalls != 1 {
		t.Fatalf("Expected 1 close event, got %d", closeCalls)
	}
	if destroyCalls != 1 {
		t.Fatalf("Expected 1 destroy event, got %d", destroyCalls)
	}
	if errorCalls != 1 {
		t.Fatalf("Expected 1 error event, got %d", errorCalls)
	}
}

func TestBoundedQueue_StressTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	// 创建一个较小容量的队列以增加竞争
	q := newTestQueue[int](t, 100)

	goroutines := 20
	opsPerGoroutine := 10000

	var wg sync.WaitGroup
	var enqueueSuccess atomic.Int64
	var dequeueSuccess atomic.Int64

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			// 使用本地随机数生成器
			r := NewTestRand(time.Now().UnixNano() + int64(id))

			for j := 0; j < opsPerGoroutine; j++ {
				if r.Intn(2) == 0 {
					if err := q.TryEnqueue(r.Intn(1000000)); err == nil {
						enqueueSuccess.Add(1)
					}
				} else {
					if _, err := q.TryDequeue(); err == nil {
						dequeueSuccess.Add(1)
					}
				}
			}
		}(i)
	}

	wg.Wait()

	t.Logf("Successful enqueues: %d", enqueueSuccess.Load())
	t.Logf("Successful dequeues: %d", dequeueSuccess.Load())
	t.Logf("Final queue size: %d", q.Len())

	// 最终队列大小应该等于入队成功次数减去出队成功次数
	expectedSize := enqueueSuccess.Load() - dequeueSuccess.Load()
	if q.Len() != int(expectedSize) {
		t.Errorf("Queue size mismatch: expected %d, got %d", expectedSize, q.Len())
	}

	free := countPermits(q.freeSlots, q.Capacity())
	available := countPermits(q.availableItems, q.Capacity())
	if free+available != q.Capacity() {
		t.Errorf("Signal counts do not partition capacity: free=%d available=%d", free, available)
	}
}

// 简单的随机数生成器，避免在并发环境中使用全局随机数生成器
type TestRand struct {
	state int64
}

func NewTestRand(seed int64) *TestRand {
	return &TestRand{state: seed}
}

func (r *TestRand) Intn(n int) int {
	r.state = (r.state*1103515245 + 12345) & 0x7fffffff
	return int(r.state % int64(n))
}
