package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"casefile-hq/quaestor/pkg/config"
	"casefile-hq/quaestor/pkg/ledger"
	"casefile-hq/quaestor/pkg/ledger/sealing"
	"casefile-hq/quaestor/pkg/ledger/storage"
)

// app bundles the wired components behind the ledger commands.
type app struct {
	cfg    *config.Config
	store  ledger.Store
	hash   sealing.HashProvider
	ledger *ledger.Ledger
}

// newApp loads configuration and wires the store, crypto providers, and
// ledger. The caller must Close the returned app.
func newApp() (*app, error) {
	return newAppWithMetrics(nil)
}

// newAppWithMetrics is newApp with ledger metrics registered against the
// given registerer. A nil registerer disables metrics.
func newAppWithMetrics(reg prometheus.Registerer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	key, err := loadKey(cfg)
	if err != nil {
		return nil, err
	}
	encKey, sigKey, err := sealing.DeriveKeys(key)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	cipher, err := sealing.NewAESGCMProvider(encKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	providers := ledger.Providers{
		Hash:   sealing.NewSHA256Provider(),
		Cipher: cipher,
		Signer: sealing.NewHMACSigner(sigKey),
	}

	var metrics *ledger.Metrics
	if reg != nil {
		metrics = ledger.NewMetrics(reg)
	}

	return &app{
		cfg:    cfg,
		store:  store,
		hash:   providers.Hash,
		ledger: ledger.New(store, providers, metrics),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// loadKey reads the hex-encoded 256-bit key from the configured
// environment variable. Key custody is external to the process.
func loadKey(cfg *config.Config) ([]byte, error) {
	encoded := os.Getenv(cfg.Ledger.KeyEnv)
	if encoded == "" {
		return nil, fmt.Errorf("environment variable %s is not set (expected hex-encoded 256-bit key)", cfg.Ledger.KeyEnv)
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid key in %s: %w", cfg.Ledger.KeyEnv, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key in %s must be 32 bytes, got %d", cfg.Ledger.KeyEnv, len(key))
	}
	return key, nil
}

func openStore(cfg *config.Config) (ledger.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		sqliteConfig := storage.DefaultSQLiteConfig()
		sqliteConfig.Path = cfg.Storage.Path
		sqliteConfig.WALMode = cfg.Storage.WALMode
		sqliteConfig.BusyTimeout = cfg.Storage.BusyTimeout
		return storage.NewSQLiteStore(sqliteConfig)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// printJSON writes v as indented JSON to stdout or the named file.
func printJSON(v any, output string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')
	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0o644)
}
