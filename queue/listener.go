package queue

import "go.uber.org/zap"

// NewLogListener 返回一个将队列事件写入结构化日志的监听器
// 队列本身从不记录日志，需要时由调用方通过WithEventListener注册
func NewLogListener(logger *zap.Logger) EventListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(evt Event) {
		switch evt.Type {
		case EventError:
			logger.Warn("queue operation failed",
				zap.Stringer("event", evt.Type),
				zap.Int("size", evt.Size),
				zap.Error(evt.Err))
		case EventEnqueue, EventDequeue:
			if ce := logger.Check(zap.DebugLevel, "queue item moved"); ce != nil {
				ce.Write(zap.Stringer("event", evt.Type), zap.Int("size", evt.Size))
			}
		default:
			logger.Info("queue state changed",
				zap.Stringer("event", evt.Type),
				zap.Int("size", evt.Size))
		}
	}
}
