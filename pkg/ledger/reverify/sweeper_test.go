package reverify

import (
	"bytes"
	"context"
	"testing"

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

func TestSweeper_Sweep(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		record, err := l.Archive(ctx, "CASE-1", name, []byte("contents of "+name), ledger.SourceMetadata{}, nil)
		if err != nil {
			t.Fatalf("Archive() failed: %v", err)
		}
		ids = append(ids, record.ID)
	}

	store.TamperBlob(ids[1], []byte("garbage"))

	sweeper := NewSweeper(l, store, &Config{Actor: "integrity-sweep"})
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}

	if report.Checked != 3 {
		t.Errorf("Expected 3 checked, got %d", report.Checked)
	}
	if len(report.Mismatches) != 1 || report.Mismatches[0] != ids[1] {
		t.Errorf("Expected mismatch [%s], got %v", ids[1], report.Mismatches)
	}
	if report.Errors != 0 {
		t.Errorf("Expected 0 errors, got %d", report.Errors)
	}

	// Each sweep verification is audited on the record itself.
	record, _, err := store.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(record.Custody) != 2 {
		t.Fatalf("Expected 2 custody entries, got %d", len(record.Custody))
	}
	last := record.Custody[1]
	if last.Action != ledger.ActionVerified {
		t.Errorf("Expected action %s, got %s", ledger.ActionVerified, last.Action)
	}
	if last.ActorID != "integrity-sweep" {
		t.Errorf("Expected actor integrity-sweep, got %s", last.ActorID)
	}

	tampered, _, err := store.Get(ctx, ids[1])
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if tampered.Status != ledger.StatusFlagged {
		t.Errorf("Expected status %s, got %s", ledger.StatusFlagged, tampered.Status)
	}
}

func TestSweeper_HaltOnMismatch(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		record, err := l.Archive(ctx, "CASE-1", name, []byte("contents of "+name), ledger.SourceMetadata{}, nil)
		if err != nil {
			t.Fatalf("Archive() failed: %v", err)
		}
		ids = append(ids, record.ID)
	}

	// Tamper every record; a halting sweep stops after the first.
	for _, id := range ids {
		store.TamperBlob(id, []byte("garbage"))
	}

	sweeper := NewSweeper(l, store, &Config{Actor: "integrity-sweep", HaltOnMismatch: true})
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}
	if len(report.Mismatches) != 1 {
		t.Errorf("Expected sweep to halt after 1 mismatch, got %d", len(report.Mismatches))
	}
}

func TestSweeper_CancelledContext(t *testing.T) {
	l, store := newTestLedger(t)

	if _, err := l.Archive(context.Background(), "CASE-1", "a.bin", []byte("payload"), ledger.SourceMetadata{}, nil); err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper := NewSweeper(l, store, nil)
	report, err := sweeper.Sweep(ctx)
	if err == nil {
		t.Fatal("Expected context error")
	}
	if report == nil || report.Checked != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	l, store := newTestLedger(t)

	sweeper := NewSweeper(l, store, &Config{Schedule: "not a cron expression"})
	if err := sweeper.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron expression")
		sweeper.Stop()
	}
}

func TestScheduler_NextRun(t *testing.T) {
	l, store := newTestLedger(t)

	sweeper := NewSweeper(l, store, &Config{Schedule: "0 3 * * *"})
	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer sweeper.Stop()

	next := sweeper.NextSweep()
	if next == nil {
		t.Fatal("Expected a scheduled next run")
	}
	if next.Hour() != 3 {
		t.Errorf("Expected next run at 03:00, got %v", next)
	}
}
