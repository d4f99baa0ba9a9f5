package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"casefile-hq/quaestor/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "quaestor",
	Short: "Quaestor - forensic evidence integrity ledger",
	Long: `Quaestor is a forensic evidence integrity ledger and analytics engine.

It provides:
  - Content-addressed archival with at-rest encryption
  - Append-only chain of custody for every artifact
  - Tamper detection through hash re-verification
  - Signed, reproducible evidence exports
  - Fraud pattern detection, timeline reconstruction, and correlation`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configured file when present and falls back to
// defaults when it is not, so read-only commands work without a config.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

// setupLogging configures the process-wide slog default from the telemetry
// section. The --verbose flag forces debug level.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Telemetry.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Telemetry.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
