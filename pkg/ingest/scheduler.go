package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"casefile-hq/quaestor/pkg/ledger"
	"casefile-hq/quaestor/pkg/ledger/sealing"
)

// State is the lifecycle state of an ingestion item.
type State string

const (
	// StatePending means the item is queued, waiting for a worker slot.
	StatePending State = "pending"

	// StateReading means a worker is streaming the artifact's bytes,
	// hashing as they arrive.
	StateReading State = "reading"

	// StateHashing means the content hash is being finalized and the
	// artifact handed to the ledger for archival.
	StateHashing State = "hashing"

	// StateArchived means archival succeeded.
	StateArchived State = "archived"

	// StateError means the item failed. Failed items are retained for a
	// bounded display window, then dropped. The scheduler never retries.
	StateError State = "error"
)

// Config contains configuration for the ingestion scheduler.
type Config struct {
	// Concurrency is the number of items processed at once. Items beyond
	// the cap remain pending until a slot frees.
	// Default: 3
	Concurrency int

	// QueueSize is the submission queue capacity. Submit blocks once the
	// queue is full.
	// Default: 64
	QueueSize int

	// ErrorRetention is how long failed items stay visible before being
	// dropped. This is a display affordance, not a retry window.
	// Default: 3 seconds
	ErrorRetention time.Duration

	// OnArchived is invoked with each successfully archived record.
	OnArchived func(*ledger.EvidenceRecord)
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:    3,
		QueueSize:      64,
		ErrorRetention: 3 * time.Second,
	}
}

// item tracks one artifact through the pipeline.
type item struct {
	id       string
	caseID   string
	artifact Artifact

	mu         sync.Mutex
	state      State
	cancelled  bool
	bytesRead  int64
	totalBytes int64 // -1 when unknown
	err        error
	evidenceID string
}

func (it *item) setState(state State) {
	it.mu.Lock()
	it.state = state
	it.mu.Unlock()
}

func (it *item) addProgress(n int64) {
	it.mu.Lock()
	it.bytesRead += n
	it.mu.Unlock()
}

// ItemStatus is a point-in-time snapshot of an ingestion item.
type ItemStatus struct {
	ID         string
	CaseID     string
	Name       string
	State      State
	BytesRead  int64
	TotalBytes int64 // -1 when unknown
	EvidenceID string
	Err        error
}

func (it *item) status() ItemStatus {
	it.mu.Lock()
	defer it.mu.Unlock()

	return ItemStatus{
		ID:         it.id,
		CaseID:     it.caseID,
		Name:       it.artifact.Name(),
		State:      it.state,
		BytesRead:  it.bytesRead,
		TotalBytes: it.totalBytes,
		EvidenceID: it.evidenceID,
		Err:        it.err,
	}
}

// Scheduler is the bounded-concurrency ingestion pipeline. Each item moves
// Pending -> Reading -> Hashing -> {Archived | Error}. Artifacts whose
// content hash matches an already-archived record in the same case are
// tagged as duplicates rather than rejected.
type Scheduler struct {
	ledger  *ledger.Ledger
	hash    sealing.HashProvider
	config  *Config
	metrics *Metrics
	logger  *slog.Logger

	queue chan *item
	done  chan struct{}

	mu     sync.Mutex
	items  map[string]*item
	closed bool

	group   *errgroup.Group
	started bool
	wg      sync.WaitGroup // outstanding items
}

// NewScheduler creates an ingestion scheduler feeding the given ledger.
// metrics may be nil. Call Start to launch the worker pool.
func NewScheduler(l *ledger.Ledger, hash sealing.HashProvider, config *Config, metrics *Metrics) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.ErrorRetention <= 0 {
		config.ErrorRetention = 3 * time.Second
	}

	return &Scheduler{
		ledger:  l,
		hash:    hash,
		config:  config,
		metrics: metrics,
		logger:  slog.Default().With("component", "ingest.scheduler"),
		queue:   make(chan *item, config.QueueSize),
		done:    make(chan struct{}),
		items:   make(map[string]*item),
	}
}

// Start launches the worker pool. Workers run until Close is called and
// the queue is drained.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	group, ctx := errgroup.WithContext(ctx)
	s.group = group

	for i := 0; i < s.config.Concurrency; i++ {
		group.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}

	s.logger.Info("ingestion scheduler started",
		"concurrency", s.config.Concurrency,
		"queue_size", s.config.QueueSize,
	)
}

// Submit queues one artifact for ingestion into the given case and returns
// the item ID. Submit blocks when the queue is full (backpressure) until a
// slot frees or ctx is cancelled.
func (s *Scheduler) Submit(ctx context.Context, caseID string, artifact Artifact) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("scheduler is closed")
	}

	it := &item{
		id:         uuid.New().String(),
		caseID:     caseID,
		artifact:   artifact,
		state:      StatePending,
		totalBytes: -1,
	}
	if sizer, ok := artifact.(Sizer); ok {
		it.totalBytes = sizer.Size()
	}

	s.items[it.id] = it
	s.metrics.setQueueDepth(len(s.items))
	s.wg.Add(1)
	s.mu.Unlock()

	// The queue stays open for the scheduler's lifetime; a Submit blocked
	// on backpressure is released by the done channel instead of a close.
	select {
	case s.queue <- it:
		return it.id, nil
	case <-s.done:
		s.removeItem(it.id)
		s.wg.Done()
		return "", fmt.Errorf("scheduler is closed")
	case <-ctx.Done():
		s.removeItem(it.id)
		s.wg.Done()
		return "", ctx.Err()
	}
}

// SubmitBatch queues a batch of artifacts and returns their item IDs.
func (s *Scheduler) SubmitBatch(ctx context.Context, caseID string, artifacts []Artifact) ([]string, error) {
	ids := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		id, err := s.Submit(ctx, caseID, artifact)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Cancel removes a still-pending item from the queue without side effects.
// It returns false if the item is unknown or already past Pending; items in
// Reading or later run to completion or fail atomically.
func (s *Scheduler) Cancel(itemID string) bool {
	s.mu.Lock()
	it, ok := s.items[itemID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	it.mu.Lock()
	if it.state != StatePending {
		it.mu.Unlock()
		return false
	}
	it.cancelled = true
	it.mu.Unlock()

	s.removeItem(itemID)
	s.metrics.observeOutcome("cancelled")
	return true
}

// Status returns a snapshot of one item, or false if the item is unknown
// (never submitted, already archived, or dropped after its error window).
func (s *Scheduler) Status(itemID string) (ItemStatus, bool) {
	s.mu.Lock()
	it, ok := s.items[itemID]
	s.mu.Unlock()
	if !ok {
		return ItemStatus{}, false
	}
	return it.status(), true
}

// Snapshot returns the status of all visible items.
func (s *Scheduler) Snapshot() []ItemStatus {
	s.mu.Lock()
	items := make([]*item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	s.mu.Unlock()

	statuses := make([]ItemStatus, 0, len(items))
	for _, it := range items {
		statuses = append(statuses, it.status())
	}
	return statuses
}

// Wait blocks until every submitted item has finished processing.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close stops accepting submissions, waits for queued items to drain, and
// shuts down the worker pool.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	close(s.done)
	if started {
		s.group.Wait() //nolint:errcheck // workers never return errors
	}

	s.logger.Info("ingestion scheduler shut down")
	return nil
}

// worker takes items off the queue until Close signals shutdown, then
// drains whatever was queued before the signal and exits.
func (s *Scheduler) worker(ctx context.Context) {
	for {
		select {
		case it := <-s.queue:
			s.handle(ctx, it)
		case <-s.done:
			for {
				select {
				case it := <-s.queue:
					s.handle(ctx, it)
				default:
					return
				}
			}
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, it *item) {
	defer s.wg.Done()

	it.mu.Lock()
	cancelled := it.cancelled
	it.mu.Unlock()
	if cancelled {
		return
	}

	s.process(ctx, it)
}

// process runs one item through Reading, Hashing, and archival.
func (s *Scheduler) process(ctx context.Context, it *item) {
	it.setState(StateReading)

	data, digest, err := s.readArtifact(it)
	if err != nil {
		s.fail(it, fmt.Errorf("failed to read artifact: %w", err))
		return
	}

	it.setState(StateHashing)

	var tags []string
	if tagger, ok := it.artifact.(Tagger); ok {
		tags = append(tags, tagger.Tags()...)
	}
	duplicate, err := s.ledger.HasContent(ctx, it.caseID, digest)
	if err != nil {
		s.fail(it, fmt.Errorf("duplicate check failed: %w", err))
		return
	}
	if duplicate {
		// Duplicates are evidence of interest, not an error.
		tags = append(tags, ledger.TagDuplicate)
		s.metrics.observeDuplicate()
	}

	record, err := s.ledger.Archive(ctx, it.caseID, it.artifact.Name(), data, it.artifact.Metadata(), tags)
	if err != nil {
		s.fail(it, err)
		return
	}

	it.mu.Lock()
	it.state = StateArchived
	it.evidenceID = record.ID
	it.mu.Unlock()

	s.metrics.observeOutcome("archived")
	s.logger.Info("artifact archived",
		"item_id", it.id,
		"case_id", it.caseID,
		"name", it.artifact.Name(),
		"evidence_id", record.ID,
		"duplicate", duplicate,
	)

	s.removeItem(it.id)

	if s.config.OnArchived != nil {
		s.config.OnArchived(record)
	}
}

// readArtifact streams the artifact's bytes, computing a running content
// hash so progress is observable without re-reading the source.
func (s *Scheduler) readArtifact(it *item) ([]byte, string, error) {
	rc, err := it.artifact.Open()
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	hasher := s.hash.NewHasher()
	var buf bytes.Buffer
	dst := io.MultiWriter(&buf, hasher)

	chunk := make([]byte, 32*1024)
	for {
		n, rerr := rc.Read(chunk)
		if n > 0 {
			if _, werr := dst.Write(chunk[:n]); werr != nil {
				return nil, "", werr
			}
			it.addProgress(int64(n))
			s.metrics.addBytes(int64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, "", rerr
		}
	}

	return buf.Bytes(), hasher.Sum(), nil
}

// fail marks an item failed and schedules its removal after the display
// window.
func (s *Scheduler) fail(it *item, err error) {
	it.mu.Lock()
	it.state = StateError
	it.err = err
	it.mu.Unlock()

	s.metrics.observeOutcome("error")
	s.logger.Error("ingestion item failed",
		"item_id", it.id,
		"case_id", it.caseID,
		"name", it.artifact.Name(),
		"error", err,
	)

	time.AfterFunc(s.config.ErrorRetention, func() {
		s.removeItem(it.id)
	})
}

func (s *Scheduler) removeItem(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.metrics.setQueueDepth(len(s.items))
	s.mu.Unlock()
}
