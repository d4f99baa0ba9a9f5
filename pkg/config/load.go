package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the convention
// QUAESTOR_SECTION_FIELD (e.g. QUAESTOR_INGEST_CONCURRENCY) and always
// take precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString("QUAESTOR_STORAGE_BACKEND", &cfg.Storage.Backend)
	overrideString("QUAESTOR_STORAGE_PATH", &cfg.Storage.Path)
	overrideString("QUAESTOR_LEDGER_KEY_ENV", &cfg.Ledger.KeyEnv)
	overrideString("QUAESTOR_INTAKE_DIR", &cfg.Intake.Dir)
	overrideString("QUAESTOR_INTAKE_CASE_ID", &cfg.Intake.CaseID)
	overrideString("QUAESTOR_REVERIFY_SCHEDULE", &cfg.Reverify.Schedule)
	overrideString("QUAESTOR_TELEMETRY_LOG_LEVEL", &cfg.Telemetry.LogLevel)
	overrideString("QUAESTOR_TELEMETRY_LOG_FORMAT", &cfg.Telemetry.LogFormat)
	overrideString("QUAESTOR_TELEMETRY_METRICS_LISTEN", &cfg.Telemetry.MetricsListen)

	overrideInt("QUAESTOR_INGEST_CONCURRENCY", &cfg.Ingest.Concurrency)
	overrideInt("QUAESTOR_INGEST_QUEUE_SIZE", &cfg.Ingest.QueueSize)
	overrideInt("QUAESTOR_ANALYTICS_FRAUD_VELOCITY_THRESHOLD", &cfg.Analytics.Fraud.VelocityThreshold)

	overrideDuration("QUAESTOR_INGEST_ERROR_RETENTION", &cfg.Ingest.ErrorRetention)
	overrideDuration("QUAESTOR_ANALYTICS_FRAUD_DUPLICATE_WINDOW", &cfg.Analytics.Fraud.DuplicateWindow)
	overrideDuration("QUAESTOR_ANALYTICS_TIMELINE_CLUSTER_GAP", &cfg.Analytics.Timeline.ClusterGap)
}

func overrideString(env string, target *string) {
	if value := os.Getenv(env); value != "" {
		*target = value
	}
}

func overrideInt(env string, target *int) {
	if value := os.Getenv(env); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(env string, target *time.Duration) {
	if value := os.Getenv(env); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}
