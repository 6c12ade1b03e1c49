package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// dumpCmd 表示dump命令，从头到尾列出队列中的元素，不移除
var dumpCmd = &cobra.Command{
	Use:   "dump [queue-name]",
	Short: "List the items of a queue from head to tail",
	Long: `List every item currently in a queue, from head to tail, without removing them.
Use --json to export the queue as a JSON document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queueName := args[0]
		asJSON, _ := cmd.Flags().GetBool("json")

		service := GetQueueService()

		// 以JSON格式导出整个队列
		if asJSON {
			data, err := service.ExportQueue(queueName)
			if err != nil {
				return fmt.Errorf("failed to export queue: %w", err)
			}
			out, err := queueservice.SerializeQueueData(data)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		var lines []string
		err := service.DumpQueue(queueName, func(msg queueservice.Message) {
			// 持有队列锁期间只做格式化
			lines = append(lines, queueservice.FormatMessage(msg))
		})
		if err != nil {
			return fmt.Errorf("failed to dump queue: %w", err)
		}

		if len(lines) == 0 {
			fmt.Printf("Queue '%s' is empty.\n", queueName)
			return nil
		}

		for i, line := range lines {
			fmt.Printf("%3d  %s\n", i+1, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().Bool("json", false, "Output the queue as JSON")
}
