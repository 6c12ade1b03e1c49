package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// interactiveCmd 表示交互式命令，用于启动一个REPL
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start an interactive session",
	Long: `Start an interactive session with the queue CLI.
Commands can be entered directly at the prompt. Ctrl+C interrupts a blocked
command; at the prompt it exits. Type 'exit' or 'quit' to exit.`,
	Aliases: []string{"i", "shell"},
	Run: func(cmd *cobra.Command, args []string) {
		if interactive {
			fmt.Println("Already in interactive mode.")
			return
		}
		runInteractiveMode()
	},
}

var interactive bool

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractiveMode() {
	interactive = true
	defer func() { interactive = false }()

	fmt.Println("Queue CLI Interactive Mode")
	fmt.Println("Type 'help' for available commands or 'exit' to quit")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 当前正在执行的命令的取消函数
	var (
		mu      sync.Mutex
		running context.CancelFunc
	)

	go func() {
		for range sigChan {
			mu.Lock()
			cancel := running
			mu.Unlock()

			if cancel != nil {
				// 打断阻塞中的命令，回到提示符
				cancel()
				continue
			}

			fmt.Println("\nReceived interrupt signal, exiting...")
			teardown()
			os.Exit(0)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Exiting...")
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		mu.Lock()
		running = cancel
		mu.Unlock()

		executeCommand(ctx, input)

		mu.Lock()
		running = nil
		mu.Unlock()
		cancel()
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

func executeCommand(ctx context.Context, input string) {
	// 使用shellwords解析命令行参数
	parser := shellwords.NewParser()
	args, err := parser.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command: %v\n", err)
		return
	}

	if len(args) == 0 {
		return
	}

	// 上一条命令设置的标志值会保留在命令对象上，执行前恢复默认值
	resetFlags(rootCmd)

	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
