package queueservice

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fyerfyer/bqueue/queue"
)

// InMemoryService 实现了Service接口的内存存储版本
type InMemoryService struct {
	// 队列名称到队列实例的映射
	queues map[string]queueEntry
	// 保护映射的互斥锁，阻塞的队列操作不持有它
	mu sync.RWMutex

	logger *zap.Logger
}

// queueEntry 包含队列及其元数据
type queueEntry struct {
	q         queue.Queue[Message]
	createdAt time.Time
}

var _ Service = (*InMemoryService)(nil)

// NewInMemoryService 创建一个新的内存队列服务
func NewInMemoryService(logger *zap.Logger) *InMemoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryService{
		queues: make(map[string]queueEntry),
		logger: logger.Named("queueservice"),
	}
}

// CreateQueue 创建一个新队列
func (s *InMemoryService) CreateQueue(name string, opts QueueOptions) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.queues[name]; exists {
		return errors.Wrapf(ErrQueueExists, "queue %q", name)
	}

	queueOpts := []queue.Option{
		queue.WithEventListener(queue.NewLogListener(s.logger.With(zap.String("queue", name)))),
	}

	if opts.EnqueueTimeout > 0 {
		queueOpts = append(queueOpts,
			queue.WithEnqueueTimeout(time.Duration(opts.EnqueueTimeout)*time.Millisecond))
	}

	if opts.DequeueTimeout > 0 {
		queueOpts = append(queueOpts,
			queue.WithDequeueTimeout(time.Duration(opts.DequeueTimeout)*time.Millisecond))
	}

	q, err := queue.NewQueue[Message](opts.Capacity, queueOpts...)
	if err != nil {
		return errors.Wrapf(err, "create queue %q with capacity %d", name, opts.Capacity)
	}

	s.queues[name] = queueEntry{
		q:         q,
		createdAt: time.Now(),
	}

	s.logger.Info("queue created",
		zap.String("queue", name),
		zap.Int("capacity", opts.Capacity))

	return nil
}

// GetQueue 获取指定名称的队列
func (s *InMemoryService) GetQueue(name string) (queue.Queue[Message], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.queues[name]
	if !exists {
		return nil, errors.Wrapf(ErrQueueNotFound, "queue %q", name)
	}

	return entry.q, nil
}

// ListQueues 按名称顺序列出所有队列
func (s *InMemoryService) ListQueues() []QueueInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]QueueInfo, 0, len(s.queues))
	for name, entry := range s.queues {
		result = append(result, QueueInfo{
			Name:  name,
			Stats: entry.q.Stats(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// EnqueueItem 向指定队列添加消息，队列满时阻塞直到ctx结束
func (s *InMemoryService) EnqueueItem(ctx context.Context, queueName string, body string) (Message, error) {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return Message{}, err
	}

	msg := newMessage(body)
	if err := q.Enqueue(ctx, msg); err != nil {
		return Message{}, errors.Wrapf(err, "enqueue to %q", queueName)
	}
	return msg, nil
}

// TryEnqueueItem 向指定队列添加消息，不阻塞
func (s *InMemoryService) TryEnqueueItem(queueName string, body string) (Message, error) {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return Message{}, err
	}

	msg := newMessage(body)
	if err := q.TryEnqueue(msg); err != nil {
		return Message{}, errors.Wrapf(err, "enqueue to %q", queueName)
	}
	return msg, nil
}

// DequeueItem 从指定队列获取消息，队列空时阻塞直到ctx结束
func (s *InMemoryService) DequeueItem(ctx context.Context, queueName string) (Message, error) {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return Message{}, err
	}

	msg, err := q.Dequeue(ctx)
	if err != nil {
		return Message{}, errors.Wrapf(err, "dequeue from %q", queueName)
	}
	return msg, nil
}

// TryDequeueItem 从指定队列获取消息，不阻塞
func (s *InMemoryService) TryDequeueItem(queueName string) (Message, error) {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return Message{}, err
	}

	msg, err := q.TryDequeue()
	if err != nil {
		return Message{}, errors.Wrapf(err, "dequeue from %q", queueName)
	}
	return msg, nil
}

// PeekItem 查看队头消息但不移除
func (s *InMemoryService) PeekItem(queueName string) (Message, error) {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return Message{}, err
	}

	msg, err := q.Peek()
	if err != nil {
		return Message{}, errors.Wrapf(err, "peek %q", queueName)
	}
	return msg, nil
}

// DumpQueue 从头到尾对每条消息调用inspect
func (s *InMemoryService) DumpQueue(queueName string, inspect func(Message)) error {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return err
	}

	q.Dump(inspect)
	return nil
}

// ExportQueue 导出队列的可序列化快照
func (s *InMemoryService) ExportQueue(queueName string) (QueueData, error) {
	s.mu.RLock()
	entry, exists := s.queues[queueName]
	s.mu.RUnlock()
	if !exists {
		return QueueData{}, errors.Wrapf(ErrQueueNotFound, "queue %q", queueName)
	}

	stats := entry.q.Stats()
	return QueueData{
		Name:      queueName,
		Capacity:  entry.q.Capacity(),
		Closed:    stats.Closed,
		CreatedAt: entry.createdAt,
		Items:     entry.q.Snapshot(),
	}, nil
}

// QueueStats 获取队列统计信息
func (s *InMemoryService) QueueStats(queueName string) (queue.Stats, error) {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return queue.Stats{}, err
	}

	return q.Stats(), nil
}

// CloseQueue 关闭队列，阻塞中的调用者被唤醒，剩余消息仍可取出
func (s *InMemoryService) CloseQueue(queueName string) error {
	q, err := s.GetQueue(queueName)
	if err != nil {
		return err
	}

	if err := q.Close(); err != nil {
		return errors.Wrapf(err, "close %q", queueName)
	}
	return nil
}

// DeleteQueue 删除队列，剩余消息按顺序交给release处理
func (s *InMemoryService) DeleteQueue(queueName string, release func(Message)) error {
	s.mu.Lock()
	entry, exists := s.queues[queueName]
	if !exists {
		s.mu.Unlock()
		return errors.Wrapf(ErrQueueNotFound, "queue %q", queueName)
	}
	delete(s.queues, queueName)
	s.mu.Unlock()

	remaining := entry.q.Len()
	entry.q.Destroy(release)

	s.logger.Info("queue deleted",
		zap.String("queue", queueName),
		zap.Int("discarded", remaining))

	return nil
}

// Close 关闭并销毁所有队列
func (s *InMemoryService) Close() error {
	s.mu.Lock()
	queues := s.queues
	s.queues = make(map[string]queueEntry)
	s.mu.Unlock()

	for _, entry := range queues {
		entry.q.Destroy(nil)
	}
	return nil
}

func newMessage(body string) Message {
	return Message{
		ID:         uuid.New().String(),
		Body:       body,
		EnqueuedAt: time.Now(),
	}
}

func validateName(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidName, "name is empty")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return errors.Wrapf(ErrInvalidName, "name %q contains whitespace", name)
	}
	return nil
}
