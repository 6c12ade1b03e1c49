package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyerfyer/bqueue/internal/config"
	"github.com/fyerfyer/bqueue/internal/logger"
	"github.com/fyerfyer/bqueue/internal/queueservice"
)

var (
	// 队列服务实例，所有命令共享
	queueSvc queueservice.Service

	log = zap.NewNop()

	cfgFile  string
	logLevel string
)

// rootCmd 表示CLI工具的根命令
var rootCmd = &cobra.Command{
	Use:   "qcli",
	Short: "A CLI tool for managing bounded blocking queues",
	Long: `Queue CLI (qcli) is a command line interface for creating and managing
fixed-capacity blocking FIFO queues. Enqueue blocks while a queue is full and
dequeue blocks while it is empty; use --try for non-blocking calls or --timeout
to bound the wait.

Without arguments qcli starts an interactive session, since queues live in memory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	Run: func(cmd *cobra.Command, args []string) {
		// 如果没有子命令被调用，显示帮助信息
		_ = cmd.Help()
	},
}

// Execute 运行根命令
// 没有参数时进入交互模式
func Execute() {
	defer teardown()

	if len(os.Args) <= 1 {
		if err := setup(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runInteractiveMode()
		return
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		teardown()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// setup 读取配置，初始化日志和队列服务，并创建配置中的预设队列
// 交互模式下每条命令都会经过这里，只有第一次生效
func setup() error {
	if queueSvc != nil {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logger.LogLevel = logLevel
	}

	l, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	log = l

	svc := queueservice.NewInMemoryService(log)
	for _, q := range cfg.Queues {
		opts := queueservice.QueueOptions{
			Capacity:       q.Capacity,
			EnqueueTimeout: q.EnqueueTimeoutMs,
			DequeueTimeout: q.DequeueTimeoutMs,
		}
		if err := svc.CreateQueue(q.Name, opts); err != nil {
			return fmt.Errorf("failed to create preset queue: %w", err)
		}
	}

	queueSvc = svc
	return nil
}

func teardown() {
	if queueSvc != nil {
		_ = queueSvc.Close()
		queueSvc = nil
	}
	_ = log.Sync()
}

// baseContext 返回命令的上下文，未设置时返回Background
func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// GetQueueService 返回队列服务实例，供子命令使用
func GetQueueService() queueservice.Service {
	return queueSvc
}
