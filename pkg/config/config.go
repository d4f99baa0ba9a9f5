// Package config loads and validates Quaestor's YAML configuration. The
// loading sequence is: parse YAML, apply defaults, apply environment
// overrides, validate.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Ledger configures the evidence ledger's crypto providers.
	Ledger LedgerConfig `yaml:"ledger"`

	// Storage selects and configures the evidence store backend.
	Storage StorageConfig `yaml:"storage"`

	// Ingest configures the bounded-concurrency ingestion pipeline.
	Ingest IngestConfig `yaml:"ingest"`

	// Intake configures the optional intake directory watcher.
	Intake IntakeConfig `yaml:"intake"`

	// Analytics configures the fraud, timeline, and correlation engines.
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Reverify configures the scheduled integrity sweep.
	Reverify ReverifyConfig `yaml:"reverify"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LedgerConfig configures the crypto capability set. Algorithm identity is
// configuration, not code.
type LedgerConfig struct {
	// HashAlgorithm names the content hash algorithm.
	// Default: "sha-256" (the only built-in provider)
	HashAlgorithm string `yaml:"hash_algorithm"`

	// EncryptionAlgorithm names the at-rest cipher.
	// Default: "aes-256-gcm"
	EncryptionAlgorithm string `yaml:"encryption_algorithm"`

	// SigningAlgorithm names the export signature scheme.
	// Default: "hmac-sha256"
	SigningAlgorithm string `yaml:"signing_algorithm"`

	// KeyEnv is the environment variable holding the hex-encoded
	// encryption/signing key. Key custody is external; the key is an
	// opaque handle.
	// Default: "QUAESTOR_KEY"
	KeyEnv string `yaml:"key_env"`
}

// StorageConfig selects the evidence store backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the SQLite database path (sqlite backend only).
	// Default: "data/evidence.db"
	Path string `yaml:"path"`

	// WALMode enables SQLite write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// IngestConfig configures the ingestion scheduler.
type IngestConfig struct {
	// Concurrency is the number of items processed at once.
	// Default: 3
	Concurrency int `yaml:"concurrency"`

	// QueueSize is the submission queue capacity.
	// Default: 64
	QueueSize int `yaml:"queue_size"`

	// ErrorRetention is how long failed items stay visible.
	// Default: 3s
	ErrorRetention time.Duration `yaml:"error_retention"`
}

// IntakeConfig configures the intake directory watcher.
type IntakeConfig struct {
	// Enabled turns the watcher on.
	Enabled bool `yaml:"enabled"`

	// Dir is the watched directory.
	Dir string `yaml:"dir"`

	// CaseID is the case new artifacts are ingested into.
	CaseID string `yaml:"case_id"`

	// DebounceInterval is the per-file settle delay.
	// Default: 500ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Extensions restricts intake to the listed extensions.
	Extensions []string `yaml:"extensions"`
}

// AnalyticsConfig configures the analyzers.
type AnalyticsConfig struct {
	Fraud       FraudConfig       `yaml:"fraud"`
	Timeline    TimelineConfig    `yaml:"timeline"`
	Correlation CorrelationConfig `yaml:"correlation"`
}

// FraudConfig holds the fraud detection thresholds.
type FraudConfig struct {
	// BenfordDeviation is the relative deviation marking a digit anomalous.
	// Default: 0.20
	BenfordDeviation float64 `yaml:"benford_deviation"`

	// BenfordDigitLimit is the anomalous digit count that must be exceeded.
	// Default: 3
	BenfordDigitLimit int `yaml:"benford_digit_limit"`

	// MaxCycleLength bounds circular transfer search depth in hops.
	// Default: 8
	MaxCycleLength int `yaml:"max_cycle_length"`

	// RoundShare is the round-transaction share that must be exceeded.
	// Default: 0.30
	RoundShare float64 `yaml:"round_share"`

	// DuplicateWindow is the duplicate pair timestamp window.
	// Default: 300s
	DuplicateWindow time.Duration `yaml:"duplicate_window"`

	// VelocityThreshold is the per-account transaction count threshold.
	// Default: 50
	VelocityThreshold int `yaml:"velocity_threshold"`

	// VelocityWindow is the rolling velocity window.
	// Default: 60m
	VelocityWindow time.Duration `yaml:"velocity_window"`
}

// TimelineConfig holds the timeline analysis thresholds.
type TimelineConfig struct {
	// ClusterGap is the maximum intra-cluster gap.
	// Default: 60s
	ClusterGap time.Duration `yaml:"cluster_gap"`

	// ClusterLimit is the cluster count that must be exceeded.
	// Default: 5
	ClusterLimit int `yaml:"cluster_limit"`

	// OffHoursStart and OffHoursEnd bound the working day.
	// Defaults: 6 and 22
	OffHoursStart int `yaml:"off_hours_start"`
	OffHoursEnd   int `yaml:"off_hours_end"`

	// Timezone is the IANA timezone for local-hour evaluation.
	// Default: "Local"
	Timezone string `yaml:"timezone"`
}

// CorrelationConfig holds the correlation thresholds.
type CorrelationConfig struct {
	// Window is the cross-stream correlation window.
	// Default: 60s
	Window time.Duration `yaml:"window"`
}

// ReverifyConfig configures the scheduled integrity sweep.
type ReverifyConfig struct {
	// Schedule is a cron expression; empty disables the sweep.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// Actor is the actor ID recorded on sweep verifications.
	// Default: "integrity-sweep"
	Actor string `yaml:"actor"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// MetricsListen is the Prometheus listen address; empty disables the
	// metrics endpoint.
	MetricsListen string `yaml:"metrics_listen"`
}
