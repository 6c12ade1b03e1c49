package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// dequeueCmd 表示dequeue命令，用于从队列获取项目
var dequeueCmd = &cobra.Command{
	Use:   "dequeue [queue-name]",
	Short: "Remove and display items from a queue",
	Long: `Remove and display one or more items from a specified queue.
By default each dequeue blocks while the queue is empty. Use --try to fail
immediately instead, or --timeout to bound the wait.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queueName := args[0]

		count, _ := cmd.Flags().GetInt("count")
		silent, _ := cmd.Flags().GetBool("silent")
		try, _ := cmd.Flags().GetBool("try")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if count < 0 {
			return fmt.Errorf("count must be a non-negative number")
		}
		if count == 0 {
			count = 1
		}
		if try && timeout > 0 {
			return fmt.Errorf("--try and --timeout cannot be combined")
		}

		service := GetQueueService()
		ctx, cancel := commandContext(cmd, timeout)
		defer cancel()

		take := func() (queueservice.Message, error) {
			if try {
				return service.TryDequeueItem(queueName)
			}
			return service.DequeueItem(ctx, queueName)
		}

		var dequeued int
		for i := 0; i < count; i++ {
			msg, err := take()
			if err != nil {
				if i == 0 {
					return fmt.Errorf("failed to dequeue item: %w", err)
				}
				fmt.Printf("Dequeued %d item(s) before encountering an error: %v\n", i, err)
				break
			}

			dequeued++
			if !silent {
				fmt.Printf("Item %d: %s\n", i+1, msg.Body)
			}
		}

		if silent || dequeued > 1 {
			fmt.Printf("Successfully dequeued %d item(s) from queue '%s'\n", dequeued, queueName)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dequeueCmd)

	dequeueCmd.Flags().IntP("count", "c", 1, "Number of items to dequeue")
	dequeueCmd.Flags().BoolP("silent", "s", false, "Silent mode (don't print items)")
	dequeueCmd.Flags().Bool("try", false, "Fail immediately instead of blocking when the queue is empty")
	dequeueCmd.Flags().Duration("timeout", 0, "Maximum time to wait for an item (e.g. 500ms, 2s)")
}
