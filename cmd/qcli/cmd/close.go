package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// closeCmd 表示close命令
var closeCmd = &cobra.Command{
	Use:   "close [queue-name]",
	Short: "Close a queue",
	Long: `Close a queue. Blocked and future enqueues fail, blocked dequeues wake up.
Items already in the queue can still be dequeued.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := GetQueueService().CloseQueue(args[0]); err != nil {
			return fmt.Errorf("failed to close queue: %w", err)
		}

		fmt.Printf("Queue '%s' closed.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(closeCmd)
}
