// Command fiberpoolctl is a small demo CLI driving the fiber pool
// through its core scenarios: basic submission, high-volume posting,
// cooperative interruption, pinning, and graceful shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	fiberpool "github.com/Swind/go-fiberpool"
	"github.com/Swind/go-fiberpool/logging"
	obsprom "github.com/Swind/go-fiberpool/observability/prometheus"
)

var threads int

var rootCmd = &cobra.Command{
	Use:   "fiberpoolctl",
	Short: "Drive a fiber pool through its core scenarios",
}

func main() {
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 0, "worker count (0 = max(GOMAXPROCS, 2)*2)")
	rootCmd.AddCommand(basicCmd, floodCmd, interruptCmd, pinCmd, delayCmd, metricsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDemoPool() *fiberpool.Pool {
	return fiberpool.NewPool(fiberpool.PoolConfig{
		Name:    "fiberpoolctl",
		Threads: threads,
		Logger:  logging.NewDefaultLogger(),
	})
}

var basicCmd = &cobra.Command{
	Use:   "basic",
	Short: "Post one fiber and await its async result",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newDemoPool()
		defer pool.Shutdown(true)

		prom, err := fiberpool.Async(pool, func(ctx context.Context) (int, error) {
			return 6, nil
		})
		if err != nil {
			return err
		}
		v, err := prom.Await()
		if err != nil {
			return err
		}
		fmt.Printf("result: %d\n", v)
		return nil
	},
}

var floodCmd = &cobra.Command{
	Use:   "flood",
	Short: "Post a large batch of fibers and wait for them to drain",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newDemoPool()
		defer pool.Shutdown(true)

		const n = 10000
		for i := 0; i < n; i++ {
			if _, err := pool.Post(func(ctx context.Context) {}); err != nil {
				return err
			}
		}
		for pool.FiberCount() > 0 {
			time.Sleep(5 * time.Millisecond)
		}
		fmt.Printf("posted and drained %d fibers\n", n)
		return nil
	},
}

var interruptCmd = &cobra.Command{
	Use:   "interrupt",
	Short: "Post a looping fiber and interrupt it cooperatively",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newDemoPool()
		defer pool.Shutdown(true)

		iterations := 0
		handle, err := pool.Post(func(ctx context.Context) {
			for !fiberpool.IsInterrupted(ctx) {
				iterations++
				fiberpool.Yield(ctx)
			}
		})
		if err != nil {
			return err
		}

		time.Sleep(20 * time.Millisecond)
		handle.Interrupt()
		_ = handle.Join(context.Background())

		fmt.Printf("fiber ran %d iterations before stopping\n", iterations)
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Post a fiber that pins itself to its first worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newDemoPool()
		defer pool.Shutdown(true)

		handle, err := pool.Post(func(ctx context.Context) {
			if err := fiberpool.BindToThisThread(ctx); err != nil {
				return
			}
			for i := 0; i < 5; i++ {
				fiberpool.Yield(ctx)
			}
		})
		if err != nil {
			return err
		}
		_ = handle.Join(context.Background())
		fmt.Println("pinned fiber finished")
		return nil
	},
}

var delayCmd = &cobra.Command{
	Use:   "delay",
	Short: "Post a fiber that only starts after a delay",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newDemoPool()
		defer pool.Shutdown(true)

		start := time.Now()
		handle, err := pool.PostAfter(200*time.Millisecond, func(ctx context.Context) {
			fmt.Printf("delayed fiber ran after %s\n", time.Since(start))
		})
		if err != nil {
			return err
		}
		return handle.Join(context.Background())
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Post and drain 1,000 fibers while exporting Prometheus stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := obsprom.NewMetricsExporter("fiberpoolctl", nil)
		if err != nil {
			return err
		}
		poller, err := obsprom.NewSnapshotPoller(nil, 200*time.Millisecond)
		if err != nil {
			return err
		}

		pool := fiberpool.NewPool(fiberpool.PoolConfig{
			Name:    "fiberpoolctl",
			Threads: threads,
			Logger:  logging.NewDefaultLogger(),
			Metrics: exporter,
		})
		defer pool.Shutdown(true)

		poller.AddPool("fiberpoolctl", poolSnapshotAdapter{pool})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		poller.Start(ctx)
		defer poller.Stop()

		for i := 0; i < 1000; i++ {
			if _, err := pool.Post(func(ctx context.Context) {}); err != nil {
				return err
			}
		}
		for pool.FiberCount() > 0 {
			time.Sleep(5 * time.Millisecond)
		}

		stats := pool.Stats()
		fmt.Printf("pool=%s workers=%d fibers=%d state=%s\n", stats.Name, stats.Workers, stats.FiberCount, stats.State)
		return nil
	},
}

// poolSnapshotAdapter adapts fiberpool.Pool.Stats() into the shape
// observability/prometheus.SnapshotPoller expects, keeping that package
// free of a dependency back on this module's root package.
type poolSnapshotAdapter struct {
	pool *fiberpool.Pool
}

func (a poolSnapshotAdapter) Stats() obsprom.PoolSnapshot {
	s := a.pool.Stats()
	return obsprom.PoolSnapshot{
		Running:    s.State == fiberpool.StateRunning,
		Workers:    s.Workers,
		FiberCount: s.FiberCount,
	}
}
