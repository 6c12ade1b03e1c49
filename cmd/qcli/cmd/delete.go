package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// deleteCmd 表示delete命令，销毁队列并丢弃剩余元素
var deleteCmd = &cobra.Command{
	Use:     "delete [queue-name]",
	Aliases: []string{"rm"},
	Short:   "Destroy a queue and discard its remaining items",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queueName := args[0]
		verbose, _ := cmd.Flags().GetBool("verbose")

		var discarded int
		err := GetQueueService().DeleteQueue(queueName, func(msg queueservice.Message) {
			discarded++
			if verbose {
				fmt.Printf("Discarded: %s\n", queueservice.FormatMessage(msg))
			}
		})
		if err != nil {
			return fmt.Errorf("failed to delete queue: %w", err)
		}

		fmt.Printf("Queue '%s' deleted, %d item(s) discarded.\n", queueName, discarded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolP("verbose", "v", false, "Print every discarded item")
}
