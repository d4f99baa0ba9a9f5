package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"casefile-hq/quaestor/pkg/ledger"
)

// MemoryStore implements the ledger.Store interface using in-memory maps.
// The ledger is in-memory by contract; this is the default registry.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ledger.EvidenceRecord
	blobs   map[string][]byte
}

// NewMemoryStore creates a new in-memory evidence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*ledger.EvidenceRecord),
		blobs:   make(map[string][]byte),
	}
}

// Put stores a record and its ciphertext blob.
func (s *MemoryStore) Put(ctx context.Context, record *ledger.EvidenceRecord, ciphertext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return ledger.NewStorageError("memory", "put", fmt.Errorf("record %q already exists", record.ID))
	}

	s.records[record.ID] = record.Clone()
	s.blobs[record.ID] = append([]byte(nil), ciphertext...)
	return nil
}

// Get retrieves a record and its ciphertext by evidence ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ledger.EvidenceRecord, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, nil, ledger.NewNotFoundError(id)
	}

	return record.Clone(), append([]byte(nil), s.blobs[id]...), nil
}

// Update replaces the stored record, leaving the ciphertext untouched.
func (s *MemoryStore) Update(ctx context.Context, record *ledger.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		return ledger.NewNotFoundError(record.ID)
	}

	s.records[record.ID] = record.Clone()
	return nil
}

// ByCase returns all records for a case, ordered by creation time.
func (s *MemoryStore) ByCase(ctx context.Context, caseID string) ([]*ledger.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*ledger.EvidenceRecord
	for _, record := range s.records {
		if record.CaseID == caseID {
			records = append(records, record.Clone())
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

// FindByContentHash returns the record in caseID with the given content
// hash, or nil if none exists.
func (s *MemoryStore) FindByContentHash(ctx context.Context, caseID, contentHash string) (*ledger.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if record.CaseID == caseID && record.ContentHash == contentHash {
			return record.Clone(), nil
		}
	}

	return nil, nil
}

// All returns every stored record.
func (s *MemoryStore) All(ctx context.Context) ([]*ledger.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*ledger.EvidenceRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

// Close releases resources held by the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*ledger.EvidenceRecord)
	s.blobs = make(map[string][]byte)
	return nil
}

// Size returns the number of records in the store (for testing).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// TamperBlob overwrites the stored ciphertext for a record (for testing
// tamper detection).
func (s *MemoryStore) TamperBlob(id string, ciphertext []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[id] = append([]byte(nil), ciphertext...)
}
