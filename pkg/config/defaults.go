package config

import "time"

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Ledger.HashAlgorithm == "" {
		cfg.Ledger.HashAlgorithm = "sha-256"
	}
	if cfg.Ledger.EncryptionAlgorithm == "" {
		cfg.Ledger.EncryptionAlgorithm = "aes-256-gcm"
	}
	if cfg.Ledger.SigningAlgorithm == "" {
		cfg.Ledger.SigningAlgorithm = "hmac-sha256"
	}
	if cfg.Ledger.KeyEnv == "" {
		cfg.Ledger.KeyEnv = "QUAESTOR_KEY"
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
		cfg.Storage.WALMode = true
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/evidence.db"
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = 5 * time.Second
	}

	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 3
	}
	if cfg.Ingest.QueueSize == 0 {
		cfg.Ingest.QueueSize = 64
	}
	if cfg.Ingest.ErrorRetention == 0 {
		cfg.Ingest.ErrorRetention = 3 * time.Second
	}

	if cfg.Intake.DebounceInterval == 0 {
		cfg.Intake.DebounceInterval = 500 * time.Millisecond
	}

	if cfg.Analytics.Fraud.BenfordDeviation == 0 {
		cfg.Analytics.Fraud.BenfordDeviation = 0.20
	}
	if cfg.Analytics.Fraud.BenfordDigitLimit == 0 {
		cfg.Analytics.Fraud.BenfordDigitLimit = 3
	}
	if cfg.Analytics.Fraud.MaxCycleLength == 0 {
		cfg.Analytics.Fraud.MaxCycleLength = 8
	}
	if cfg.Analytics.Fraud.RoundShare == 0 {
		cfg.Analytics.Fraud.RoundShare = 0.30
	}
	if cfg.Analytics.Fraud.DuplicateWindow == 0 {
		cfg.Analytics.Fraud.DuplicateWindow = 300 * time.Second
	}
	if cfg.Analytics.Fraud.VelocityThreshold == 0 {
		cfg.Analytics.Fraud.VelocityThreshold = 50
	}
	if cfg.Analytics.Fraud.VelocityWindow == 0 {
		cfg.Analytics.Fraud.VelocityWindow = 60 * time.Minute
	}

	if cfg.Analytics.Timeline.ClusterGap == 0 {
		cfg.Analytics.Timeline.ClusterGap = 60 * time.Second
	}
	if cfg.Analytics.Timeline.ClusterLimit == 0 {
		cfg.Analytics.Timeline.ClusterLimit = 5
	}
	if cfg.Analytics.Timeline.OffHoursStart == 0 {
		cfg.Analytics.Timeline.OffHoursStart = 6
	}
	if cfg.Analytics.Timeline.OffHoursEnd == 0 {
		cfg.Analytics.Timeline.OffHoursEnd = 22
	}
	if cfg.Analytics.Timeline.Timezone == "" {
		cfg.Analytics.Timeline.Timezone = "Local"
	}

	if cfg.Analytics.Correlation.Window == 0 {
		cfg.Analytics.Correlation.Window = 60 * time.Second
	}

	if cfg.Reverify.Schedule == "" {
		cfg.Reverify.Schedule = "0 3 * * *"
	}
	if cfg.Reverify.Actor == "" {
		cfg.Reverify.Actor = "integrity-sweep"
	}

	if cfg.Telemetry.LogLevel == "" {
		cfg.Telemetry.LogLevel = "info"
	}
	if cfg.Telemetry.LogFormat == "" {
		cfg.Telemetry.LogFormat = "text"
	}
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
