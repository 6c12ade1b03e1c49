package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/bqueue/internal/queueservice"
)

// listCmd 表示list命令，用于列出所有队列
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all queues",
	Long:  `Display a list of all available queues and their basic information.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 获取所有队列
		queues := GetQueueService().ListQueues()

		if len(queues) == 0 {
			fmt.Println("No queues available.")
			return
		}

		verbose, _ := cmd.Flags().GetBool("verbose")

		if verbose {
			fmt.Printf("Found %d queue(s):\n\n", len(queues))
			for i, info := range queues {
				if i > 0 {
					fmt.Println("---")
				}
				fmt.Print(queueservice.FormatQueueInfo(info))
			}
			return
		}

		// 使用tabwriter对齐输出
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tCAPACITY\tCLOSED\tOPERATIONS")

		for _, info := range queues {
			fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%d enq, %d deq\n",
				info.Name,
				info.Stats.Size,
				info.Stats.Capacity,
				info.Stats.Closed,
				info.Stats.Enqueued,
				info.Stats.Dequeued)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("verbose", "v", false, "Show detailed information for each queue")
}
