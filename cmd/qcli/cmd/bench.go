package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fyerfyer/bqueue/internal/queueservice"
	"github.com/fyerfyer/bqueue/queue"
)

// benchCmd 表示bench命令，在一个临时队列上运行生产者/消费者压测
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a producer/consumer benchmark on a fresh queue",
	Long: `Run concurrent producers and consumers over a fresh bounded queue and
verify that every item is delivered exactly once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg benchConfig
		cfg.producers, _ = cmd.Flags().GetInt("producers")
		cfg.consumers, _ = cmd.Flags().GetInt("consumers")
		cfg.items, _ = cmd.Flags().GetInt("items")
		cfg.capacity, _ = cmd.Flags().GetInt("capacity")
		cfg.rate, _ = cmd.Flags().GetFloat64("rate")

		fmt.Printf("Running %d producer(s) and %d consumer(s), %d items, capacity %d...\n",
			cfg.producers, cfg.consumers, cfg.items, cfg.capacity)

		res, err := runBench(baseContext(cmd), cfg)
		if err != nil {
			return fmt.Errorf("benchmark failed: %w", err)
		}

		fmt.Printf("Delivered %d items in %v (%.0f items/s)\n",
			res.consumed, res.elapsed.Round(time.Millisecond),
			float64(res.consumed)/res.elapsed.Seconds())
		fmt.Print(queueservice.FormatQueueStats(res.stats))
		fmt.Println("Verification: every item delivered exactly once")
		return nil
	},
}

type benchConfig struct {
	producers int
	consumers int
	items     int
	capacity  int
	rate      float64 // 所有生产者合计的每秒入队数，0为不限速
}

type benchResult struct {
	consumed   int
	duplicates int
	missing    int
	elapsed    time.Duration
	stats      queue.Stats
}

var errBenchVerification = errors.New("delivery verification failed")

// runBench 运行一次压测，生产者结束后关闭队列，消费者取空后退出
func runBench(ctx context.Context, cfg benchConfig) (benchResult, error) {
	if cfg.producers <= 0 || cfg.consumers <= 0 || cfg.items < 0 {
		return benchResult{}, fmt.Errorf("producers and consumers must be positive, items non-negative")
	}

	q, err := queue.NewBoundedQueue[int](cfg.capacity)
	if err != nil {
		return benchResult{}, fmt.Errorf("failed to create queue: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.rate), cfg.producers)
	}

	seen := make([]atomic.Int32, cfg.items)
	var consumed atomic.Int64

	start := time.Now()

	consumers, cctx := errgroup.WithContext(ctx)
	for c := 0; c < cfg.consumers; c++ {
		consumers.Go(func() error {
			for {
				id, err := q.Dequeue(cctx)
				if errors.Is(err, queue.ErrQueueClosed) {
					return nil
				}
				if err != nil {
					return err
				}
				seen[id].Add(1)
				consumed.Add(1)
			}
		})
	}

	producers, pctx := errgroup.WithContext(ctx)
	for p := 0; p < cfg.producers; p++ {
		producers.Go(func() error {
			for id := p; id < cfg.items; id += cfg.producers {
				if limiter != nil {
					if err := limiter.Wait(pctx); err != nil {
						return err
					}
				}
				if err := q.Enqueue(pctx, id); err != nil {
					return err
				}
			}
			return nil
		})
	}

	perr := producers.Wait()
	// 关闭后消费者取完剩余元素再退出
	_ = q.Close()
	cerr := consumers.Wait()

	res := benchResult{
		consumed: int(consumed.Load()),
		elapsed:  time.Since(start),
		stats:    q.Stats(),
	}

	if perr != nil {
		return res, fmt.Errorf("producer: %w", perr)
	}
	if cerr != nil {
		return res, fmt.Errorf("consumer: %w", cerr)
	}

	for i := range seen {
		switch n := seen[i].Load(); {
		case n == 0:
			res.missing++
		case n > 1:
			res.duplicates++
		}
	}
	if res.missing > 0 || res.duplicates > 0 {
		return res, fmt.Errorf("%w: %d missing, %d duplicated", errBenchVerification, res.missing, res.duplicates)
	}
	return res, nil
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntP("producers", "p", 4, "Number of producer goroutines")
	benchCmd.Flags().IntP("consumers", "c", 4, "Number of consumer goroutines")
	benchCmd.Flags().IntP("items", "n", 100000, "Total number of items to transfer")
	benchCmd.Flags().Int("capacity", 64, "Queue capacity")
	benchCmd.Flags().Float64("rate", 0, "Producer rate limit in items per second (0 for unlimited)")
}
