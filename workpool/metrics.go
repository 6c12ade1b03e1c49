package workpool

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics 包含工作池的运行时指标
type Metrics struct {
	// 任务相关指标
	TotalTasks     uint64        // 成功提交的任务数
	RejectedTasks  uint64        // 提交失败的任务数
	CompletedTasks uint64        // 已完成任务数
	FailedTasks    uint64        // 失败任务数
	CanceledTasks  uint64        // 取消任务数
	QueuedTasks    uint64        // 当前排队任务数
	AvgWaitTime    time.Duration // 平均排队时间
	AvgProcessTime time.Duration // 平均处理时间

	// 工作池状态
	ActiveWorkers int32 // 当前活跃工作协程数
	IdleWorkers   int32 // 当前空闲工作协程数
	TotalWorkers  int32 // 当前总工作协程数
	PeakWorkers   int32 // 峰值工作协程数

	startedTasks     uint64
	totalWaitTime    int64
	totalProcessTime int64

	mu sync.RWMutex
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) taskSubmitted() {
	atomic.AddUint64(&m.TotalTasks, 1)
}

func (m *Metrics) taskRejected() {
	atomic.AddUint64(&m.RejectedTasks, 1)
}

// taskStarted 记录任务开始执行，waitTime为任务在队列中的时间
func (m *Metrics) taskStarted(waitTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startedTasks++
	m.totalWaitTime += int64(waitTime)
	m.AvgWaitTime = time.Duration(m.totalWaitTime / int64(m.startedTasks))
}

// taskFinished 记录任务执行结束
func (m *Metrics) taskFinished(processingTime time.Duration, status TaskStatus) {
	switch status {
	case TaskStatusCompleted:
		atomic.AddUint64(&m.CompletedTasks, 1)
	case TaskStatusCanceled:
		atomic.AddUint64(&m.CanceledTasks, 1)
	default:
		atomic.AddUint64(&m.FailedTasks, 1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalProcessTime += int64(processingTime)
	if m.startedTasks > 0 {
		m.AvgProcessTime = time.Duration(m.totalProcessTime / int64(m.startedTasks))
	}
}

// taskCanceled 记录未执行就被取消的任务
func (m *Metrics) taskCanceled() {
	atomic.AddUint64(&m.CanceledTasks, 1)
}

func (m *Metrics) workerStatusChanged(active, total int32) {
	atomic.StoreInt32(&m.ActiveWorkers, active)
	atomic.StoreInt32(&m.IdleWorkers, max(total-active, 0))
	atomic.StoreInt32(&m.TotalWorkers, total)

	for {
		current := atomic.LoadInt32(&m.PeakWorkers)
		if total <= current || atomic.CompareAndSwapInt32(&m.PeakWorkers, current, total) {
			break
		}
	}
}

// Snapshot 返回当前指标的快照
func (m *Metrics) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Metrics{
		TotalTasks:     atomic.LoadUint64(&m.TotalTasks),
		RejectedTasks:  atomic.LoadUint64(&m.RejectedTasks),
		CompletedTasks: atomic.LoadUint64(&m.CompletedTasks),
		FailedTasks:    atomic.LoadUint64(&m.FailedTasks),
		CanceledTasks:  atomic.LoadUint64(&m.CanceledTasks),
		AvgWaitTime:    m.AvgWaitTime,
		AvgProcessTime: m.AvgProcessTime,
		ActiveWorkers:  atomic.LoadInt32(&m.ActiveWorkers),
		IdleWorkers:    atomic.LoadInt32(&m.IdleWorkers),
		TotalWorkers:   atomic.LoadInt32(&m.TotalWorkers),
		PeakWorkers:    atomic.LoadInt32(&m.PeakWorkers),
	}
}

// WorkerUtilization 计算工作协程的利用率 (0.0-1.0)
func (m *Metrics) WorkerUtilization() float64 {
	total := atomic.LoadInt32(&m.TotalWorkers)
	if total == 0 {
		return 0.0
	}

	active := atomic.LoadInt32(&m.ActiveWorkers)
	return float64(active) / float64(total)
}

// QueueUtilization 计算队列的利用率 (0.0-1.0)，需要传入队列容量
func (m *Metrics) QueueUtilization(capacity uint64) float64 {
	if capacity == 0 {
		return 0.0
	}

	queued := atomic.LoadUint64(&m.QueuedTasks)
	if queued > capacity {
		return 1.0
	}

	return float64(queued) / float64(capacity)
}

// TaskSuccessRate 计算任务成功率 (0.0-1.0)
func (m *Metrics) TaskSuccessRate() float64 {
	completed := atomic.LoadUint64(&m.CompletedTasks)
	failed := atomic.LoadUint64(&m.FailedTasks)

	total := completed + failed
	if total == 0 {
		return 1.0
	}

	return float64(completed) / float64(total)
}
