package config

import (
	"fmt"
	"time"
)

// Validate checks a configuration for invalid or inconsistent values.
func Validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be \"memory\" or \"sqlite\", got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite backend")
	}

	if cfg.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest.concurrency must be at least 1, got %d", cfg.Ingest.Concurrency)
	}
	if cfg.Ingest.QueueSize < 1 {
		return fmt.Errorf("ingest.queue_size must be at least 1, got %d", cfg.Ingest.QueueSize)
	}

	if cfg.Intake.Enabled {
		if cfg.Intake.Dir == "" {
			return fmt.Errorf("intake.dir is required when intake is enabled")
		}
		if cfg.Intake.CaseID == "" {
			return fmt.Errorf("intake.case_id is required when intake is enabled")
		}
	}

	fraud := cfg.Analytics.Fraud
	if fraud.BenfordDeviation <= 0 || fraud.BenfordDeviation >= 1 {
		return fmt.Errorf("analytics.fraud.benford_deviation must be in (0, 1), got %v", fraud.BenfordDeviation)
	}
	if fraud.MaxCycleLength < 2 {
		return fmt.Errorf("analytics.fraud.max_cycle_length must be at least 2, got %d", fraud.MaxCycleLength)
	}
	if fraud.RoundShare <= 0 || fraud.RoundShare >= 1 {
		return fmt.Errorf("analytics.fraud.round_share must be in (0, 1), got %v", fraud.RoundShare)
	}
	if fraud.DuplicateWindow <= 0 {
		return fmt.Errorf("analytics.fraud.duplicate_window must be positive, got %v", fraud.DuplicateWindow)
	}
	if fraud.VelocityWindow <= 0 {
		return fmt.Errorf("analytics.fraud.velocity_window must be positive, got %v", fraud.VelocityWindow)
	}

	tl := cfg.Analytics.Timeline
	if tl.ClusterGap <= 0 {
		return fmt.Errorf("analytics.timeline.cluster_gap must be positive, got %v", tl.ClusterGap)
	}
	if tl.OffHoursStart < 0 || tl.OffHoursStart > 23 {
		return fmt.Errorf("analytics.timeline.off_hours_start must be in [0, 23], got %d", tl.OffHoursStart)
	}
	if tl.OffHoursEnd < 0 || tl.OffHoursEnd > 23 {
		return fmt.Errorf("analytics.timeline.off_hours_end must be in [0, 23], got %d", tl.OffHoursEnd)
	}
	if tl.Timezone != "" && tl.Timezone != "Local" {
		if _, err := time.LoadLocation(tl.Timezone); err != nil {
			return fmt.Errorf("analytics.timeline.timezone %q is not a valid location: %w", tl.Timezone, err)
		}
	}

	switch cfg.Telemetry.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.log_level must be one of debug, info, warn, error; got %q", cfg.Telemetry.LogLevel)
	}
	switch cfg.Telemetry.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("telemetry.log_format must be \"text\" or \"json\", got %q", cfg.Telemetry.LogFormat)
	}

	return nil
}
