package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"casefile-hq/quaestor/pkg/ledger"
)

func testRecord(id, caseID, contentHash string, createdAt time.Time) *ledger.EvidenceRecord {
	return &ledger.EvidenceRecord{
		ID:              id,
		CaseID:          caseID,
		Name:            "exhibit-" + id + ".bin",
		ContentHash:     contentHash,
		EncryptedDigest: "enc-" + contentHash,
		Size:            42,
		Category:        "financial",
		Tags:            []string{"seized", "reviewed"},
		Status:          ledger.StatusArchived,
		Source: ledger.SourceMetadata{
			Source:      "export",
			Database:    "core",
			Table:       "transactions",
			RecordCount: 1200,
		},
		IntegrityVerified: true,
		CreatedAt:         createdAt,
		Custody: []ledger.CustodyEntry{
			{
				Timestamp:    createdAt,
				Action:       ledger.ActionCreated,
				ActorID:      ledger.SystemActor,
				HashSnapshot: contentHash,
			},
			{
				Timestamp:    createdAt.Add(time.Minute),
				Action:       ledger.ActionAccessed,
				ActorID:      "examiner-1",
				Note:         "initial review",
				HashSnapshot: contentHash,
			},
		},
	}
}

// storeFactories lets every contract test run against both backends.
func storeFactories(t *testing.T) map[string]func(t *testing.T) ledger.Store {
	return map[string]func(t *testing.T) ledger.Store{
		"memory": func(t *testing.T) ledger.Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) ledger.Store {
			store, err := NewSQLiteStore(&SQLiteConfig{
				Path:         filepath.Join(t.TempDir(), "evidence.db"),
				MaxOpenConns: 4,
				MaxIdleConns: 2,
				WALMode:      true,
				BusyTimeout:  5 * time.Second,
			})
			if err != nil {
				t.Fatalf("NewSQLiteStore() failed: %v", err)
			}
			return store
		},
	}
}

// TestStore_RoundTrip tests that records round-trip losslessly, custody
// ledger included.
func TestStore_RoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			created := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
			record := testRecord("ev-1", "CASE-1", "hash-1", created)
			blob := []byte{0xde, 0xad, 0xbe, 0xef}

			if err := store.Put(ctx, record, blob); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}

			got, gotBlob, err := store.Get(ctx, "ev-1")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if !bytes.Equal(gotBlob, blob) {
				t.Errorf("Blob mismatch: %x vs %x", gotBlob, blob)
			}

			if got.ID != record.ID || got.CaseID != record.CaseID || got.Name != record.Name {
				t.Errorf("Identity mismatch: %+v", got)
			}
			if got.ContentHash != record.ContentHash || got.EncryptedDigest != record.EncryptedDigest {
				t.Errorf("Hash mismatch: %+v", got)
			}
			if got.Size != record.Size || got.Category != record.Category {
				t.Errorf("Descriptive field mismatch: %+v", got)
			}
			if len(got.Tags) != 2 || got.Tags[0] != "seized" || got.Tags[1] != "reviewed" {
				t.Errorf("Tags mismatch: %v", got.Tags)
			}
			if got.Status != ledger.StatusArchived || !got.IntegrityVerified {
				t.Errorf("Status mismatch: %s verified=%v", got.Status, got.IntegrityVerified)
			}
			if got.Source != record.Source {
				t.Errorf("Source mismatch: %+v vs %+v", got.Source, record.Source)
			}
			if !got.CreatedAt.Equal(record.CreatedAt) {
				t.Errorf("CreatedAt mismatch: %v vs %v", got.CreatedAt, record.CreatedAt)
			}

			if len(got.Custody) != 2 {
				t.Fatalf("Expected 2 custody entries, got %d", len(got.Custody))
			}
			for i, entry := range got.Custody {
				want := record.Custody[i]
				if entry.Action != want.Action || entry.ActorID != want.ActorID ||
					entry.Note != want.Note || entry.HashSnapshot != want.HashSnapshot {
					t.Errorf("Custody entry %d mismatch: %+v vs %+v", i, entry, want)
				}
				if !entry.Timestamp.Equal(want.Timestamp) {
					t.Errorf("Custody entry %d timestamp mismatch: %v vs %v", i, entry.Timestamp, want.Timestamp)
				}
			}
		})
	}
}

func TestStore_PutDuplicateID(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			record := testRecord("ev-1", "CASE-1", "hash-1", time.Now().UTC())
			if err := store.Put(ctx, record, []byte("blob")); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}
			if err := store.Put(ctx, record, []byte("blob")); err == nil {
				t.Error("Expected error for duplicate ID")
			}
		})
	}
}

func TestStore_GetNotFound(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			_, _, err := store.Get(context.Background(), "missing")
			if err == nil {
				t.Fatal("Expected error for missing record")
			}
			if !ledger.IsNotFound(err) {
				t.Errorf("Expected not-found error, got %v", err)
			}
		})
	}
}

// TestStore_Update tests that Update replaces the record while leaving the
// ciphertext untouched.
func TestStore_Update(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			record := testRecord("ev-1", "CASE-1", "hash-1", time.Now().UTC())
			blob := []byte("ciphertext")
			if err := store.Put(ctx, record, blob); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}

			record.Status = ledger.StatusFlagged
			record.IntegrityVerified = false
			record.Custody = append(record.Custody, ledger.CustodyEntry{
				Timestamp: time.Now().UTC(),
				Action:    ledger.ActionVerified,
				ActorID:   "examiner-1",
			})
			if err := store.Update(ctx, record); err != nil {
				t.Fatalf("Update() failed: %v", err)
			}

			got, gotBlob, err := store.Get(ctx, "ev-1")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Status != ledger.StatusFlagged || got.IntegrityVerified {
				t.Errorf("Update not applied: %s verified=%v", got.Status, got.IntegrityVerified)
			}
			if len(got.Custody) != 3 {
				t.Errorf("Expected 3 custody entries, got %d", len(got.Custody))
			}
			if !bytes.Equal(gotBlob, blob) {
				t.Error("Update changed the ciphertext")
			}

			if err := store.Update(ctx, testRecord("missing", "CASE-1", "h", time.Now())); err == nil {
				t.Error("Expected error updating a missing record")
			}
		})
	}
}

// TestStore_ByCase tests case filtering and creation-time ordering.
func TestStore_ByCase(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
			for _, spec := range []struct {
				id     string
				caseID string
				offset time.Duration
			}{
				{"ev-2", "CASE-1", 2 * time.Hour},
				{"ev-1", "CASE-1", time.Hour},
				{"ev-3", "CASE-2", 0},
			} {
				record := testRecord(spec.id, spec.caseID, "hash-"+spec.id, base.Add(spec.offset))
				if err := store.Put(ctx, record, []byte("blob")); err != nil {
					t.Fatalf("Put(%s) failed: %v", spec.id, err)
				}
			}

			records, err := store.ByCase(ctx, "CASE-1")
			if err != nil {
				t.Fatalf("ByCase() failed: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("Expected 2 records, got %d", len(records))
			}
			if records[0].ID != "ev-1" || records[1].ID != "ev-2" {
				t.Errorf("Expected creation-time order [ev-1 ev-2], got [%s %s]", records[0].ID, records[1].ID)
			}

			all, err := store.All(ctx)
			if err != nil {
				t.Fatalf("All() failed: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("Expected 3 records, got %d", len(all))
			}
		})
	}
}

func TestStore_FindByContentHash(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			record := testRecord("ev-1", "CASE-1", "hash-1", time.Now().UTC())
			if err := store.Put(ctx, record, []byte("blob")); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}

			found, err := store.FindByContentHash(ctx, "CASE-1", "hash-1")
			if err != nil {
				t.Fatalf("FindByContentHash() failed: %v", err)
			}
			if found == nil || found.ID != "ev-1" {
				t.Errorf("Expected ev-1, got %+v", found)
			}

			found, err = store.FindByContentHash(ctx, "CASE-2", "hash-1")
			if err != nil {
				t.Fatalf("FindByContentHash() failed: %v", err)
			}
			if found != nil {
				t.Errorf("Expected nil for other case, got %+v", found)
			}

			found, err = store.FindByContentHash(ctx, "CASE-1", "no-such-hash")
			if err != nil {
				t.Fatalf("FindByContentHash() failed: %v", err)
			}
			if found != nil {
				t.Errorf("Expected nil for unknown hash, got %+v", found)
			}
		})
	}
}

// TestMemoryStore_CloneOnRead tests that callers cannot mutate stored
// state through returned records.
func TestMemoryStore_CloneOnRead(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	record := testRecord("ev-1", "CASE-1", "hash-1", time.Now().UTC())
	if err := store.Put(ctx, record, []byte("blob")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, _, err := store.Get(ctx, "ev-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	got.Custody[0].ActorID = "intruder"
	got.Tags[0] = "mangled"

	again, _, err := store.Get(ctx, "ev-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if again.Custody[0].ActorID != ledger.SystemActor {
		t.Errorf("Custody mutation leaked: %s", again.Custody[0].ActorID)
	}
	if again.Tags[0] != "seized" {
		t.Errorf("Tag mutation leaked: %s", again.Tags[0])
	}
}

// TestSQLiteStore_Reopen tests that records survive a close and reopen.
func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.db")
	config := &SQLiteConfig{Path: path, MaxOpenConns: 4, MaxIdleConns: 2, WALMode: true, BusyTimeout: 5 * time.Second}
	ctx := context.Background()

	store, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}

	record := testRecord("ev-1", "CASE-1", "hash-1", time.Now().UTC())
	if err := store.Put(ctx, record, []byte("blob")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := NewSQLiteStore(config)
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen failed: %v", err)
	}
	defer reopened.Close()

	got, _, err := reopened.Get(ctx, "ev-1")
	if err != nil {
		t.Fatalf("Get() after reopen failed: %v", err)
	}
	if got.ContentHash != "hash-1" {
		t.Errorf("Expected hash-1, got %s", got.ContentHash)
	}
}
