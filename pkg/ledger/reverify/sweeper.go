// Package reverify runs scheduled integrity sweeps over archived evidence.
// A sweep re-verifies every record in the ledger so tampering is detected
// without waiting for an investigator to check a record by hand.
package reverify

import (
	"context"
	"log/slog"
	"time"

	"casefile-hq/quaestor/pkg/ledger"
)

// Config contains configuration for the integrity sweeper.
type Config struct {
	// Schedule is a cron expression for scheduling sweeps.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	Schedule string

	// Actor is the actor ID recorded on sweep verifications.
	// Default: "integrity-sweep"
	Actor string

	// HaltOnMismatch stops a sweep at the first detected mismatch.
	// Default: false (sweep everything, report all mismatches)
	HaltOnMismatch bool
}

// DefaultConfig returns the default sweeper configuration.
func DefaultConfig() *Config {
	return &Config{
		Schedule: "0 3 * * *",
		Actor:    "integrity-sweep",
	}
}

// Report summarizes one completed sweep.
type Report struct {
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Checked    int       `json:"checked"`
	Mismatches []string  `json:"mismatches,omitempty"` // evidence IDs that failed
	Errors     int       `json:"errors"`
}

// Sweeper re-verifies archived evidence against its content hash.
type Sweeper struct {
	ledger    *ledger.Ledger
	store     ledger.Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewSweeper creates a new integrity sweeper.
func NewSweeper(l *ledger.Ledger, store ledger.Store, config *Config) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Actor == "" {
		config.Actor = "integrity-sweep"
	}

	s := &Sweeper{
		ledger: l,
		store:  store,
		config: config,
		logger: slog.Default().With("component", "ledger.reverify"),
	}
	s.scheduler = NewScheduler(s)

	return s
}

// Sweep verifies every record in the store. Each verification appends its
// own Verified custody entry through the ledger, so sweeps leave a full
// audit trail. Mismatches are collected rather than aborting the sweep
// unless HaltOnMismatch is set.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	report := &Report{Started: time.Now()}

	records, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		select {
		case <-ctx.Done():
			report.Finished = time.Now()
			return report, ctx.Err()
		default:
		}

		outcome, err := s.ledger.Verify(ctx, record.ID, s.config.Actor)
		if err != nil {
			report.Errors++
			s.logger.Error("sweep verification failed",
				"evidence_id", record.ID,
				"error", err,
			)
			continue
		}

		report.Checked++
		if !outcome.Valid {
			report.Mismatches = append(report.Mismatches, record.ID)
			if s.config.HaltOnMismatch {
				break
			}
		}
	}

	report.Finished = time.Now()

	s.logger.Info("integrity sweep completed",
		"checked", report.Checked,
		"mismatches", len(report.Mismatches),
		"errors", report.Errors,
		"duration_ms", report.Finished.Sub(report.Started).Milliseconds(),
	)

	return report, nil
}

// Start starts the automatic sweep scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	return s.scheduler.Start(ctx)
}

// Stop stops the automatic sweep scheduler.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// NextSweep returns the time of the next scheduled sweep.
func (s *Sweeper) NextSweep() *time.Time {
	return s.scheduler.NextRun()
}
