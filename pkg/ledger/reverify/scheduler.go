package reverify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs integrity sweeps on a cron schedule.
type Scheduler struct {
	sweeper *Sweeper
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a new sweep scheduler.
func NewScheduler(sweeper *Sweeper) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "ledger.reverify.scheduler"),
	}
}

// Start begins scheduled sweeping based on the configured cron expression.
// If the schedule is empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweeper.config.Schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.sweeper.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.sweeper.config.Schedule, err)
	}

	_, err := s.cron.AddFunc(s.sweeper.config.Schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule integrity sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("integrity sweep scheduler started",
		"schedule", s.sweeper.config.Schedule,
		"actor", s.sweeper.config.Actor,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one sweep cycle.
func (s *Scheduler) runSweep(ctx context.Context) {
	s.logger.Info("starting scheduled integrity sweep")

	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled integrity sweep failed", "error", err)
		return
	}

	if len(report.Mismatches) > 0 {
		s.logger.Warn("scheduled sweep found integrity mismatches",
			"checked", report.Checked,
			"mismatches", len(report.Mismatches),
		)
	}
}

// Stop stops the scheduler and waits for any running sweep to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("integrity sweep scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled sweep time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
