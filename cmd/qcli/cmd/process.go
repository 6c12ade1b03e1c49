package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
	"github.com/fyerfyer/bqueue/queue"
	"github.com/fyerfyer/bqueue/workpool"
)

// processCmd 表示process命令，用工作池消费队列中的元素
var processCmd = &cobra.Command{
	Use:   "process [queue-name]",
	Short: "Consume a queue with a pool of workers",
	Long: `Dequeue items from a queue and hand them to a fixed pool of workers.
Without --follow processing stops once the queue is empty. With --follow it
keeps waiting for new items until the queue is closed or Ctrl+C is pressed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queueName := args[0]

		workers, _ := cmd.Flags().GetInt("workers")
		backlog, _ := cmd.Flags().GetInt("backlog")
		work, _ := cmd.Flags().GetDuration("work")
		ratePerSec, _ := cmd.Flags().GetFloat64("rate")
		follow, _ := cmd.Flags().GetBool("follow")
		verbose, _ := cmd.Flags().GetBool("verbose")
		drain, _ := cmd.Flags().GetDuration("drain-timeout")

		service := GetQueueService()
		if _, err := service.GetQueue(queueName); err != nil {
			return fmt.Errorf("failed to process queue: %w", err)
		}

		wp, err := workpool.New(
			workpool.WithWorkers(workers),
			workpool.WithQueueCapacity(backlog),
			workpool.WithSubmitRate(ratePerSec, workers),
			workpool.WithLogger(log),
		)
		if err != nil {
			return fmt.Errorf("failed to create worker pool: %w", err)
		}
		if err := wp.Start(); err != nil {
			return fmt.Errorf("failed to start worker pool: %w", err)
		}

		// Ctrl+C只停止读取队列，已取出的元素仍交给工作池
		ctx := baseContext(cmd)
		start := time.Now()

		fed := feedPool(ctx, service, queueName, wp, follow, func(msg queueservice.Message) workpool.TaskFunc {
			return processMessage(msg, work, verbose)
		})
		handles := fed.handles

		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := wp.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Worker pool did not drain in time: %v\n", err)
		}

		counts := make(map[workpool.TaskStatus]int)
		for _, h := range handles {
			_ = h.Wait(shutdownCtx)
			counts[h.Status()]++
		}

		metrics := wp.GetMetrics()
		fmt.Printf("Processed %d item(s) from queue '%s' in %v\n",
			len(handles), queueName, time.Since(start).Round(time.Millisecond))
		fmt.Printf("Completed: %d, failed: %d, canceled: %d, requeued: %d, lost: %d\n",
			counts[workpool.TaskStatusCompleted], counts[workpool.TaskStatusFailed],
			counts[workpool.TaskStatusCanceled], fed.requeued, fed.lost)
		fmt.Printf("Workers: %d peak, avg wait %v, avg processing %v\n",
			metrics.PeakWorkers, metrics.AvgWaitTime, metrics.AvgProcessTime)

		return nil
	},
}

type feedResult struct {
	handles  []workpool.TaskHandle
	requeued int
	lost     int
}

// feedPool 从队列取出元素提交给工作池，直到队列为空、关闭或ctx结束
// 已出队的元素用不可取消的上下文提交，提交失败时放回队列尾部
func feedPool(ctx context.Context, service queueservice.Service, queueName string,
	wp *workpool.WorkPool, follow bool, newTask func(queueservice.Message) workpool.TaskFunc) feedResult {
	var res feedResult
	submitCtx := context.WithoutCancel(ctx)

	for {
		var (
			msg queueservice.Message
			err error
		)
		if follow {
			msg, err = service.DequeueItem(ctx, queueName)
		} else {
			msg, err = service.TryDequeueItem(queueName)
		}
		if err != nil {
			if !isEndOfQueue(err) {
				fmt.Printf("Stopped reading queue: %v\n", err)
			}
			return res
		}

		h, err := wp.Submit(submitCtx, newTask(msg))
		if err == nil {
			res.handles = append(res.handles, h)
			continue
		}

		fmt.Printf("Failed to submit item %s: %v\n", msg.ID, err)
		if _, qerr := service.TryEnqueueItem(queueName, msg.Body); qerr != nil {
			// 放回失败，元素丢失
			res.lost++
			fmt.Printf("Failed to requeue item %s: %v\n", msg.ID, qerr)
		} else {
			res.requeued++
		}
		return res
	}
}

// processMessage 返回处理单条消息的任务，work模拟处理耗时
func processMessage(msg queueservice.Message, work time.Duration, verbose bool) workpool.TaskFunc {
	return func(ctx context.Context) (any, error) {
		if work > 0 {
			select {
			case <-time.After(work):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if verbose {
			fmt.Printf("Processed: %s\n", queueservice.FormatMessage(msg))
		}
		return len(msg.Body), nil
	}
}

func isEndOfQueue(err error) bool {
	return errors.Is(err, queue.ErrQueueEmpty) ||
		errors.Is(err, queue.ErrQueueClosed) ||
		errors.Is(err, queue.ErrOperationCancelled)
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().IntP("workers", "w", 4, "Number of workers")
	processCmd.Flags().Int("backlog", 16, "Capacity of the worker pool task queue")
	processCmd.Flags().Duration("work", 0, "Simulated processing time per item")
	processCmd.Flags().Float64("rate", 0, "Maximum items handed to workers per second (0 for unlimited)")
	processCmd.Flags().BoolP("follow", "f", false, "Keep waiting for new items until the queue is closed")
	processCmd.Flags().BoolP("verbose", "v", false, "Print every processed item")
	processCmd.Flags().Duration("drain-timeout", 30*time.Second, "Maximum time to wait for submitted items to finish")
}
