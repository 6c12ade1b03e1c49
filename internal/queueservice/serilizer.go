package queueservice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fyerfyer/bqueue/queue"
)

// QueueData 表示队列的可序列化数据结构
type QueueData struct {
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"createdAt"`
	Items     []Message `json:"items"`
}

// FormatQueueInfo 返回队列信息的格式化字符串表示
func FormatQueueInfo(info QueueInfo) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Queue: %s\n", info.Name))
	sb.WriteString(fmt.Sprintf("State: %s\n", queueState(info.Stats)))
	sb.WriteString(fmt.Sprintf("Size: %d/%d\n", info.Stats.Size, info.Stats.Capacity))
	sb.WriteString(fmt.Sprintf("Created: %s\n", formatTimeAgo(info.Stats.CreatedAt)))
	sb.WriteString(fmt.Sprintf("Operations: %d enqueued, %d dequeued\n",
		info.Stats.Enqueued, info.Stats.Dequeued))

	return sb.String()
}

// FormatQueueStats 返回队列统计信息的格式化字符串表示
func FormatQueueStats(stats queue.Stats) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("State: %s\n", queueState(stats)))
	sb.WriteString(fmt.Sprintf("Size: %d\n", stats.Size))
	sb.WriteString(fmt.Sprintf("Capacity: %d (%.1f%% utilized)\n",
		stats.Capacity, stats.Utilization()*100))

	sb.WriteString(fmt.Sprintf("Created: %s\n", formatTimeAgo(stats.CreatedAt)))
	sb.WriteString(fmt.Sprintf("Operations: %d enqueued, %d dequeued\n",
		stats.Enqueued, stats.Dequeued))

	if stats.EnqueueBlocks > 0 || stats.DequeueBlocks > 0 {
		sb.WriteString(fmt.Sprintf("Blocks: %d enqueue, %d dequeue\n",
			stats.EnqueueBlocks, stats.DequeueBlocks))
	}

	if stats.EnqueueTimeouts > 0 || stats.DequeueTimeouts > 0 {
		sb.WriteString(fmt.Sprintf("Timeouts: %d enqueue, %d dequeue\n",
			stats.EnqueueTimeouts, stats.DequeueTimeouts))
	}

	if stats.Rejected > 0 {
		sb.WriteString(fmt.Sprintf("Rejected: %d\n", stats.Rejected))
	}

	return sb.String()
}

// FormatMessage 返回单条消息的单行表示
func FormatMessage(msg Message) string {
	return fmt.Sprintf("%s  %s  (%s)", msg.ID[:min(8, len(msg.ID))], msg.Body, formatTimeAgo(msg.EnqueuedAt))
}

// SerializeQueueData 将队列数据序列化为JSON
func SerializeQueueData(data QueueData) ([]byte, error) {
	if data.Items == nil {
		data.Items = []Message{}
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "serialize queue %q", data.Name)
	}
	return b, nil
}

// DeserializeQueueData 从JSON反序列化队列数据
func DeserializeQueueData(data []byte) (QueueData, error) {
	var queueData QueueData
	if err := json.Unmarshal(data, &queueData); err != nil {
		return QueueData{}, errors.Wrap(err, "deserialize queue data")
	}
	return queueData, nil
}

func queueState(stats queue.Stats) string {
	switch {
	case stats.Closed:
		return "closed"
	case stats.IsFull():
		return "full"
	case stats.IsEmpty():
		return "empty"
	default:
		return "open"
	}
}

// formatTimeAgo 将时间格式化为人类可读的"多久之前"字符串
func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	seconds := int(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%d seconds ago", seconds)
	}

	minutes := int(duration.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%d minutes ago", minutes)
	}

	hours := int(duration.Hours())
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}

	days := int(duration.Hours() / 24)
	return fmt.Sprintf("%d days ago", days)
}

// ParseItems 解析以逗号分隔的项目字符串，忽略空项
func ParseItems(itemsStr string) []string {
	var items []string
	for _, item := range strings.Split(itemsStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// FormatItems 将消息内容格式化为以逗号分隔的字符串
func FormatItems(msgs []Message) string {
	bodies := make([]string, len(msgs))
	for i, msg := range msgs {
		bodies[i] = msg.Body
	}
	return strings.Join(bodies, ",")
}
