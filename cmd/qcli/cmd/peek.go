package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// peekCmd 表示peek命令，查看队头元素但不移除
var peekCmd = &cobra.Command{
	Use:   "peek [queue-name]",
	Short: "Show the item at the head of a queue without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := GetQueueService().PeekItem(args[0])
		if err != nil {
			return fmt.Errorf("failed to peek queue: %w", err)
		}

		fmt.Println(queueservice.FormatMessage(msg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(peekCmd)
}
