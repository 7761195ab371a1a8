package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/fdispatch/internal/config"
	"github.com/rzbill/fdispatch/internal/dispatcher"
	httpserver "github.com/rzbill/fdispatch/internal/server/http"
	"github.com/rzbill/fdispatch/internal/runtime"
	"github.com/rzbill/fdispatch/internal/sched"
	logpkg "github.com/rzbill/fdispatch/pkg/log"
)

func main() {
	level, err := logpkg.ParseLevel(os.Getenv("FDISPATCH_LOG_LEVEL"))
	if err != nil {
		level = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "fdispatchd",
		Short: "In-process fragment dispatcher runtime",
		Long:  "fdispatchd runs a single-node fragment dispatcher: a ring-buffer message bus shared by producers and subscribers inside one process.",
	}

	var configPath string
	var bufferSize string
	var mode string
	var subscriptions []string
	var metricsAddr string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start a dispatcher and serve health/metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)
			if bufferSize != "" {
				cfg.BufferSize = bufferSize
			}
			if mode != "" {
				cfg.Mode = mode
			}
			if len(subscriptions) > 0 {
				cfg.Subscriptions = subscriptions
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}

			rt, err := runtime.Open(cfg, prometheus.DefaultRegisterer, logger)
			if err != nil {
				return fmt.Errorf("open runtime: %w", err)
			}
			defer rt.Close()

			srv := httpserver.New(rt)
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ctx, cfg.MetricsAddr) }()
			logger.Info("serving health and metrics", logpkg.Str("addr", cfg.MetricsAddr))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
				logger.Info("shutting down")
				cancel()
				srv.Close()
			case err := <-errCh:
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a JSON config file")
	runCmd.Flags().StringVar(&bufferSize, "buffer-size", "", "override the ring buffer size (e.g. 8M)")
	runCmd.Flags().StringVar(&mode, "mode", "", "delivery mode: independent or pipeline")
	runCmd.Flags().StringSliceVar(&subscriptions, "subscriptions", nil, "pre-declared subscription names")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /healthz and /metrics on")

	var benchMessages int
	var benchPayload int
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Offer and drain a burst of messages through an in-memory dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(logger, benchMessages, benchPayload)
		},
	}
	benchCmd.Flags().IntVar(&benchMessages, "messages", 100000, "number of messages to offer")
	benchCmd.Flags().IntVar(&benchPayload, "payload-bytes", 64, "payload size per message")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fdispatchd (dev build)")
		},
	}

	rootCmd.AddCommand(runCmd, benchCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("fdispatchd exited with an error", logpkg.Err(err))
	}
}

// runBench builds a standalone dispatcher with a single "bench"
// subscription, offers benchMessages payloads of benchPayload bytes each,
// drains them with direct Poll calls on the calling goroutine, and reports
// throughput.
func runBench(logger logpkg.Logger, benchMessages, benchPayload int) error {
	scheduler := sched.New(sched.DefaultWorkers)
	defer scheduler.Stop()

	d, err := dispatcher.NewBuilder().
		BufferSize(16 << 20).
		Subscriptions("bench").
		Scheduler(scheduler).
		Build()
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}
	defer d.CloseAsync().Await()

	sub, _ := d.Subscription("bench")
	payload := make([]byte, benchPayload)

	start := time.Now()
	consumed := 0
	for i := 0; i < benchMessages; i++ {
		if _, err := d.Offer(payload, 0); err != nil {
			if errors.Is(err, dispatcher.ErrInsufficientCapacity) {
				n, perr := sub.Poll(func(buffer []byte, offset, length, streamID int32, isFailed bool) dispatcher.FragmentResult {
					return dispatcher.ConsumeResult
				}, benchMessages)
				if perr != nil {
					return perr
				}
				consumed += n
				i--
				continue
			}
			return fmt.Errorf("offer: %w", err)
		}
	}

	for consumed < benchMessages {
		n, err := sub.Poll(func(buffer []byte, offset, length, streamID int32, isFailed bool) dispatcher.FragmentResult {
			return dispatcher.ConsumeResult
		}, benchMessages-consumed)
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			break
		}
		consumed += n
	}
	elapsed := time.Since(start)

	logger.Info("bench complete",
		logpkg.Int("messages", consumed),
		logpkg.Int("payloadBytes", benchPayload),
		logpkg.Str("elapsed", elapsed.String()))
	fmt.Printf("offered+drained %d messages of %d bytes in %s (%.0f msg/s)\n",
		consumed, benchPayload, elapsed, float64(consumed)/elapsed.Seconds())
	return nil
}
