package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// enqueueCmd 表示enqueue命令，用于向队列添加项目
var enqueueCmd = &cobra.Command{
	Use:   "enqueue [queue-name]",
	Short: "Add items to a queue",
	Long: `Add one or more items to a specified queue.
By default each enqueue blocks while the queue is full. Use --try to fail
immediately instead, or --timeout to bound the wait.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 获取队列名称
		queueName := args[0]

		// 获取参数
		item, _ := cmd.Flags().GetString("item")
		itemsStr, _ := cmd.Flags().GetString("items")
		filePath, _ := cmd.Flags().GetString("file")

		// 三种输入方式只能选一种
		set := 0
		for _, v := range []string{item, itemsStr, filePath} {
			if v != "" {
				set++
			}
		}
		if set > 1 {
			return fmt.Errorf("only one of --item, --items and --file may be specified")
		}
		if set == 0 {
			return fmt.Errorf("must specify one of --item, --items or --file")
		}

		put, cancel, err := newPutter(cmd, GetQueueService(), queueName)
		if err != nil {
			return err
		}
		defer cancel()

		if filePath != "" {
			return enqueueFromFile(put, queueName, filePath)
		}

		// 处理单个或逗号分隔的多个项目
		items := []string{item}
		if itemsStr != "" {
			items = queueservice.ParseItems(itemsStr)
		}

		for i, it := range items {
			msg, err := put(it)
			if err != nil {
				if i == 0 {
					return fmt.Errorf("failed to enqueue item: %w", err)
				}
				fmt.Printf("Enqueued %d item(s) before encountering an error: %v\n", i, err)
				return nil
			}
			if len(items) == 1 {
				fmt.Printf("Successfully enqueued item %s to queue '%s'\n", msg.ID, queueName)
			}
		}

		if len(items) > 1 {
			fmt.Printf("Successfully enqueued %d items to queue '%s'\n", len(items), queueName)
		}
		return nil
	},
}

type putFunc func(body string) (queueservice.Message, error)

// newPutter 根据--try和--timeout选择入队方式
func newPutter(cmd *cobra.Command, service queueservice.Service, queueName string) (putFunc, context.CancelFunc, error) {
	try, _ := cmd.Flags().GetBool("try")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if try && timeout > 0 {
		return nil, nil, fmt.Errorf("--try and --timeout cannot be combined")
	}

	if try {
		return func(body string) (queueservice.Message, error) {
			return service.TryEnqueueItem(queueName, body)
		}, func() {}, nil
	}

	ctx, cancel := commandContext(cmd, timeout)
	return func(body string) (queueservice.Message, error) {
		return service.EnqueueItem(ctx, queueName, body)
	}, cancel, nil
}

// commandContext 返回命令的上下文，timeout大于0时附加超时
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := baseContext(cmd)
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// enqueueFromFile 从文件中读取项目并入队，每行一个
func enqueueFromFile(put putFunc, queueName, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var enqueued, failed int

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue // 跳过空行
		}

		if _, err := put(line); err != nil {
			failed++
			fmt.Printf("Failed to enqueue: %s - %v\n", line, err)
		} else {
			enqueued++
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	fmt.Printf("Bulk enqueue to queue '%s' completed: %d items enqueued, %d failed\n",
		queueName, enqueued, failed)
	return nil
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().StringP("item", "i", "", "Item to enqueue")
	enqueueCmd.Flags().String("items", "", "Comma separated items to enqueue")
	enqueueCmd.Flags().StringP("file", "f", "", "File containing items to enqueue (one per line)")
	enqueueCmd.Flags().Bool("try", false, "Fail immediately instead of blocking when the queue is full")
	enqueueCmd.Flags().Duration("timeout", 0, "Maximum time to wait for a free slot (e.g. 500ms, 2s)")
}
