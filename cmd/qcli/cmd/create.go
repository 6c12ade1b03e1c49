package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// createCmd 表示create命令，用于创建新队列
var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new bounded queue",
	Long: `Create a new queue with a fixed capacity.
Enqueue blocks while the queue is full; optional timeouts bound every blocking call.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 获取队列名称
		name := args[0]

		// 获取参数
		capacity, _ := cmd.Flags().GetInt("capacity")
		enqueueTimeout, _ := cmd.Flags().GetInt("enqueue-timeout")
		dequeueTimeout, _ := cmd.Flags().GetInt("dequeue-timeout")

		// 验证容量
		if capacity <= 0 {
			return fmt.Errorf("capacity must be positive, got %d", capacity)
		}

		// 创建队列选项
		opts := queueservice.QueueOptions{
			Capacity:       capacity,
			EnqueueTimeout: enqueueTimeout,
			DequeueTimeout: dequeueTimeout,
		}

		// 创建队列
		service := GetQueueService()
		if err := service.CreateQueue(name, opts); err != nil {
			return fmt.Errorf("failed to create queue: %w", err)
		}

		// 显示成功信息
		fmt.Printf("Queue '%s' created successfully.\n", name)
		fmt.Printf("Capacity: %d\n", capacity)

		if enqueueTimeout > 0 {
			fmt.Printf("Enqueue timeout: %d ms\n", enqueueTimeout)
		}

		if dequeueTimeout > 0 {
			fmt.Printf("Dequeue timeout: %d ms\n", dequeueTimeout)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	// 添加参数
	createCmd.Flags().IntP("capacity", "c", 16, "Queue capacity (must be positive)")
	createCmd.Flags().Int("enqueue-timeout", 0, "Timeout for blocking enqueue in milliseconds (0 for no timeout)")
	createCmd.Flags().Int("dequeue-timeout", 0, "Timeout for blocking dequeue in milliseconds (0 for no timeout)")
}
