package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"casefile-hq/quaestor/pkg/ledger"
	"casefile-hq/quaestor/pkg/ledger/sealing"
	"casefile-hq/quaestor/pkg/ledger/storage"
)

func newTestLedger(t *testing.T) (*ledger.Ledger, *storage.MemoryStore) {
	t.Helper()

	cipher, err := sealing.NewAESGCMProvider(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("NewAESGCMProvider() failed: %v", err)
	}

	store := storage.NewMemoryStore()
	l := ledger.New(store, ledger.Providers{
		Hash:   sealing.NewSHA256Provider(),
		Cipher: cipher,
		Signer: sealing.NewHMACSigner([]byte("test-key")),
	}, nil)
	return l, store
}

func TestScheduler_SubmitBatch(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), &Config{Concurrency: 3, QueueSize: 16}, nil)
	scheduler.Start(ctx)
	defer scheduler.Close()

	artifacts := []Artifact{
		NewBytesArtifact("a.bin", []byte("first"), ledger.SourceMetadata{Source: "test"}),
		NewBytesArtifact("b.bin", []byte("second"), ledger.SourceMetadata{Source: "test"}),
		NewBytesArtifact("c.bin", []byte("third"), ledger.SourceMetadata{Source: "test"}),
	}

	ids, err := scheduler.SubmitBatch(ctx, "CASE-1", artifacts)
	if err != nil {
		t.Fatalf("SubmitBatch() failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("Expected 3 item IDs, got %d", len(ids))
	}

	scheduler.Wait()

	if store.Size() != 3 {
		t.Errorf("Expected 3 archived records, got %d", store.Size())
	}

	records, err := store.ByCase(ctx, "CASE-1")
	if err != nil {
		t.Fatalf("ByCase() failed: %v", err)
	}
	for _, record := range records {
		if record.Status != ledger.StatusArchived {
			t.Errorf("Record %s: expected status %s, got %s", record.Name, ledger.StatusArchived, record.Status)
		}
		if len(record.Custody) != 1 || record.Custody[0].Action != ledger.ActionCreated {
			t.Errorf("Record %s: expected single Created custody entry", record.Name)
		}
	}
}

// TestScheduler_DuplicateTagging tests that re-submitting identical content
// archives a second record tagged as a duplicate.
func TestScheduler_DuplicateTagging(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	// Single worker so the first archive completes before the second
	// duplicate check runs.
	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), &Config{Concurrency: 1, QueueSize: 16}, nil)
	scheduler.Start(ctx)
	defer scheduler.Close()

	payload := []byte("identical bytes")
	if _, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("original.bin", payload, ledger.SourceMetadata{})); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if _, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("copy.bin", payload, ledger.SourceMetadata{})); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	scheduler.Wait()

	records, err := store.ByCase(ctx, "CASE-1")
	if err != nil {
		t.Fatalf("ByCase() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records (duplicates archive anyway), got %d", len(records))
	}

	tagged := 0
	for _, record := range records {
		for _, tag := range record.Tags {
			if tag == ledger.TagDuplicate {
				tagged++
			}
		}
	}
	if tagged != 1 {
		t.Errorf("Expected exactly 1 duplicate-tagged record, got %d", tagged)
	}
}

func TestScheduler_ArtifactTags(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), nil, nil)
	scheduler.Start(ctx)
	defer scheduler.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.csv")
	if err := os.WriteFile(path, []byte("col_a,col_b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	artifact := NewFileArtifact(path, ledger.SourceMetadata{Source: "seized-laptop"})
	artifact.RecordTags = []string{"financial"}

	if _, err := scheduler.Submit(ctx, "CASE-1", artifact); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	scheduler.Wait()

	records, err := store.ByCase(ctx, "CASE-1")
	if err != nil {
		t.Fatalf("ByCase() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.Name != "ledger.csv" {
		t.Errorf("Expected name ledger.csv, got %s", record.Name)
	}
	if record.Source.Source != "seized-laptop" {
		t.Errorf("Expected source seized-laptop, got %s", record.Source.Source)
	}
	if len(record.Tags) != 1 || record.Tags[0] != "financial" {
		t.Errorf("Expected tags [financial], got %v", record.Tags)
	}
}

// TestScheduler_CancelPending tests that a pending item can be cancelled
// without side effects, and that later states cannot.
func TestScheduler_CancelPending(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	// Never started: submitted items stay pending in the queue.
	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), &Config{Concurrency: 1, QueueSize: 16}, nil)

	id, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("a.bin", []byte("payload"), ledger.SourceMetadata{}))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	if !scheduler.Cancel(id) {
		t.Error("Expected Cancel to succeed for a pending item")
	}
	if scheduler.Cancel(id) {
		t.Error("Expected Cancel to fail for an already-cancelled item")
	}
	if scheduler.Cancel("no-such-item") {
		t.Error("Expected Cancel to fail for an unknown item")
	}

	scheduler.Start(ctx)
	scheduler.Wait()
	scheduler.Close()

	if store.Size() != 0 {
		t.Errorf("Cancelled item was archived: %d records", store.Size())
	}
}

type failingArtifact struct{ name string }

func (a *failingArtifact) Name() string                    { return a.name }
func (a *failingArtifact) Open() (io.ReadCloser, error)    { return nil, fmt.Errorf("device unreadable") }
func (a *failingArtifact) Metadata() ledger.SourceMetadata { return ledger.SourceMetadata{} }

// TestScheduler_FailedItemRetained tests that a failed item stays visible
// for the retention window and is then dropped.
func TestScheduler_FailedItemRetained(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(),
		&Config{Concurrency: 1, QueueSize: 16, ErrorRetention: 100 * time.Millisecond}, nil)
	scheduler.Start(ctx)
	defer scheduler.Close()

	id, err := scheduler.Submit(ctx, "CASE-1", &failingArtifact{name: "broken.bin"})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	scheduler.Wait()

	status, ok := scheduler.Status(id)
	if !ok {
		t.Fatal("Expected failed item to remain visible")
	}
	if status.State != StateError {
		t.Errorf("Expected state %s, got %s", StateError, status.State)
	}
	if status.Err == nil {
		t.Error("Expected a retained error")
	}
	if store.Size() != 0 {
		t.Errorf("Failed item was archived: %d records", store.Size())
	}

	// Dropped after the retention window.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := scheduler.Status(id); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Failed item still visible after retention window")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestScheduler_SubmitAfterClose(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), nil, nil)
	scheduler.Start(ctx)
	scheduler.Close()

	if _, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("a.bin", []byte("x"), ledger.SourceMetadata{})); err == nil {
		t.Error("Expected error submitting to a closed scheduler")
	}
}

// TestScheduler_CloseReleasesBlockedSubmit tests that a Submit blocked on
// a full queue is released with an error when the scheduler shuts down,
// instead of panicking on a closed channel.
func TestScheduler_CloseReleasesBlockedSubmit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	// Never started and QueueSize 1: the second Submit blocks on the send.
	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), &Config{Concurrency: 1, QueueSize: 1}, nil)

	if _, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("a.bin", []byte("first"), ledger.SourceMetadata{})); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	errCh := make(chan error, 1)
	panicCh := make(chan any, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicCh <- r
			}
		}()
		_, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("b.bin", []byte("second"), ledger.SourceMetadata{}))
		errCh <- err
	}()

	// Give the second Submit time to block on the full queue.
	time.Sleep(50 * time.Millisecond)

	if err := scheduler.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Expected the blocked Submit to fail after Close")
		}
	case r := <-panicCh:
		t.Fatalf("Submit panicked during Close: %v", r)
	case <-time.After(2 * time.Second):
		t.Fatal("Submit still blocked after Close")
	}
}

// TestScheduler_ProgressTracking tests that byte progress and total size
// are reported for sized artifacts.
func TestScheduler_ProgressTracking(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), &Config{Concurrency: 1, QueueSize: 16}, nil)

	payload := bytes.Repeat([]byte("x"), 100*1024)
	id, err := scheduler.Submit(ctx, "CASE-1", NewBytesArtifact("big.bin", payload, ledger.SourceMetadata{}))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	status, ok := scheduler.Status(id)
	if !ok {
		t.Fatal("Expected pending item to be visible")
	}
	if status.State != StatePending {
		t.Errorf("Expected state %s, got %s", StatePending, status.State)
	}
	if status.TotalBytes != int64(len(payload)) {
		t.Errorf("Expected total bytes %d, got %d", len(payload), status.TotalBytes)
	}

	scheduler.Start(ctx)
	scheduler.Wait()
	scheduler.Close()
}

func TestWatcher_IntakeFile(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	archived := make(chan *ledger.EvidenceRecord, 1)
	config := DefaultConfig()
	config.OnArchived = func(record *ledger.EvidenceRecord) {
		archived <- record
	}

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), config, nil)
	scheduler.Start(ctx)
	defer scheduler.Close()

	dir := t.TempDir()
	watcher, err := NewWatcher(scheduler, &WatcherConfig{
		Dir:              dir,
		CaseID:           "CASE-1",
		DebounceInterval: 50 * time.Millisecond,
		SkipHidden:       true,
	})
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(filepath.Join(dir, "dropped.bin"), []byte("intake payload"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	select {
	case record := <-archived:
		if record.Name != "dropped.bin" {
			t.Errorf("Expected name dropped.bin, got %s", record.Name)
		}
		if record.CaseID != "CASE-1" {
			t.Errorf("Expected case CASE-1, got %s", record.CaseID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for intake file to be archived")
	}
}

// TestWatcher_ExtensionFilter tests that non-matching extensions are
// ignored.
func TestWatcher_ExtensionFilter(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	archived := make(chan *ledger.EvidenceRecord, 2)
	config := DefaultConfig()
	config.OnArchived = func(record *ledger.EvidenceRecord) {
		archived <- record
	}

	scheduler := NewScheduler(l, sealing.NewSHA256Provider(), config, nil)
	scheduler.Start(ctx)
	defer scheduler.Close()

	dir := t.TempDir()
	watcher, err := NewWatcher(scheduler, &WatcherConfig{
		Dir:              dir,
		CaseID:           "CASE-1",
		DebounceInterval: 50 * time.Millisecond,
		Extensions:       []string{".csv"},
	})
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "take.csv"), []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	select {
	case record := <-archived:
		if record.Name != "take.csv" {
			t.Errorf("Expected take.csv, got %s", record.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for intake file")
	}

	// Give the skipped file a chance to (incorrectly) land.
	time.Sleep(200 * time.Millisecond)
	if store.Size() != 1 {
		t.Errorf("Expected 1 archived record, got %d", store.Size())
	}
}
