package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"casefile-hq/quaestor/pkg/ingest"
	"casefile-hq/quaestor/pkg/ledger/reverify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the intake watcher and scheduled integrity sweep",
	Long: `Run Quaestor's long-lived mode: watch the configured intake directory
for new artifacts, archive them as they settle, and re-verify every
archived record on the configured cron schedule.

When telemetry.metrics_listen is set, Prometheus metrics are served on
/metrics.

Examples:
  quaestor watch --config quaestor.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	registry := prometheus.NewRegistry()

	a, err := newAppWithMetrics(registry)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := slog.Default().With("component", "watch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestConfig := ingest.DefaultConfig()
	ingestConfig.Concurrency = a.cfg.Ingest.Concurrency
	ingestConfig.QueueSize = a.cfg.Ingest.QueueSize
	ingestConfig.ErrorRetention = a.cfg.Ingest.ErrorRetention

	scheduler := ingest.NewScheduler(a.ledger, a.hash, ingestConfig, ingest.NewMetrics(registry))
	scheduler.Start(ctx)
	defer scheduler.Close()

	var watcher *ingest.Watcher
	if a.cfg.Intake.Enabled {
		watcher, err = ingest.NewWatcher(scheduler, &ingest.WatcherConfig{
			Dir:              a.cfg.Intake.Dir,
			CaseID:           a.cfg.Intake.CaseID,
			DebounceInterval: a.cfg.Intake.DebounceInterval,
			Extensions:       a.cfg.Intake.Extensions,
			SkipHidden:       true,
		})
		if err != nil {
			return fmt.Errorf("failed to create intake watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start intake watcher: %w", err)
		}
		defer watcher.Stop()
		logger.Info("intake watcher running", "dir", a.cfg.Intake.Dir, "case_id", a.cfg.Intake.CaseID)
	}

	var sweeper *reverify.Sweeper
	if a.cfg.Reverify.Schedule != "" {
		sweeper = reverify.NewSweeper(a.ledger, a.store, &reverify.Config{
			Schedule: a.cfg.Reverify.Schedule,
			Actor:    a.cfg.Reverify.Actor,
		})
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start integrity sweep: %w", err)
		}
		defer sweeper.Stop()
		if next := sweeper.NextSweep(); next != nil {
			logger.Info("integrity sweep scheduled",
				"schedule", a.cfg.Reverify.Schedule,
				"next_run", next.Format(time.RFC3339),
			)
		}
	}

	var metricsServer *http.Server
	if listen := a.cfg.Telemetry.MetricsListen; listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: listen, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "addr", listen)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx) //nolint:errcheck
	}
	return nil
}
