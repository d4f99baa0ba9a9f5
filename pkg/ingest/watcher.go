package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"casefile-hq/quaestor/pkg/ledger"
)

// WatcherConfig contains configuration for the intake directory watcher.
type WatcherConfig struct {
	// Dir is the intake directory to watch.
	Dir string

	// CaseID is the case new artifacts are ingested into.
	CaseID string

	// DebounceInterval is how long to wait after the last write event for
	// a path before submitting it, so partially written files settle.
	// Default: 500ms
	DebounceInterval time.Duration

	// Extensions restricts intake to the given file extensions
	// (e.g. ".csv", ".log"). Empty means all files.
	Extensions []string

	// SkipHidden skips dotfiles.
	// Default: true
	SkipHidden bool
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 500 * time.Millisecond,
		SkipHidden:       true,
	}
}

// Watcher converts files dropped into an intake directory into ingestion
// submissions. Write bursts are debounced per path so a file is submitted
// once, after it stops changing.
type Watcher struct {
	scheduler *Scheduler
	watcher   *fsnotify.Watcher
	config    *WatcherConfig
	logger    *slog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	running  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher creates an intake watcher feeding the given scheduler.
func NewWatcher(scheduler *Scheduler, config *WatcherConfig) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("intake directory not configured")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		scheduler: scheduler,
		watcher:   fsw,
		config:    config,
		logger:    slog.Default().With("component", "ingest.watcher"),
		timers:    make(map[string]*time.Timer),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start begins watching the intake directory.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.config.Dir, err)
	}

	w.logger.Info("intake watcher started",
		"dir", w.config.Dir,
		"case_id", w.config.CaseID,
		"debounce", w.config.DebounceInterval,
	)

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
	<-w.doneCh
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.wantPath(event.Name) {
				continue
			}
			w.debounce(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// wantPath applies the extension and hidden-file filters.
func (w *Watcher) wantPath(path string) bool {
	base := filepath.Base(path)
	if w.config.SkipHidden && strings.HasPrefix(base, ".") {
		return false
	}

	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	for _, allowed := range w.config.Extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// debounce resets the per-path settle timer; the path is submitted when it
// stops receiving events for the debounce interval.
func (w *Watcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.config.DebounceInterval)
		return
	}

	w.timers[path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.submit(ctx, path)
	})
}

func (w *Watcher) submit(ctx context.Context, path string) {
	artifact := NewFileArtifact(path, ledger.SourceMetadata{Source: "intake:" + w.config.Dir})

	itemID, err := w.scheduler.Submit(ctx, w.config.CaseID, artifact)
	if err != nil {
		w.logger.Error("failed to submit intake file",
			"path", path,
			"error", err,
		)
		return
	}

	w.logger.Info("intake file submitted",
		"path", path,
		"item_id", itemID,
		"case_id", w.config.CaseID,
	)
}
