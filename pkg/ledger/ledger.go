package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"casefile-hq/quaestor/pkg/ledger/sealing"
)

// Providers is the pluggable crypto capability set consumed by the ledger.
// Algorithm identity is carried by the providers themselves, not hardcoded.
type Providers struct {
	Hash   sealing.HashProvider
	Cipher sealing.EncryptionProvider
	Signer sealing.SigningProvider
}

// Ledger owns evidence records and their chains of custody. All mutation of
// a record goes through the ledger; concurrent operations on the same
// evidence ID serialize on a per-record lock so custody timestamps remain
// monotonic, while operations on different records never block each other.
type Ledger struct {
	store     Store
	providers Providers
	metrics   *Metrics
	logger    *slog.Logger

	mu          sync.Mutex
	recordLocks map[string]*sync.Mutex

	now func() time.Time
}

// New creates a ledger over the given store and crypto providers.
// metrics may be nil to disable collection.
func New(store Store, providers Providers, metrics *Metrics) *Ledger {
	return &Ledger{
		store:       store,
		providers:   providers,
		metrics:     metrics,
		logger:      slog.Default().With("component", "ledger"),
		recordLocks: make(map[string]*sync.Mutex),
		now:         time.Now,
	}
}

// lockRecord returns the exclusive lock for an evidence ID, creating it on
// first use.
func (l *Ledger) lockRecord(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.recordLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.recordLocks[id] = lock
	}
	return lock
}

// appendEntry appends a custody entry, clamping the timestamp so the
// sequence stays non-decreasing even if the clock steps backwards.
func (l *Ledger) appendEntry(record *EvidenceRecord, action Action, actorID, note, hashSnapshot string) {
	ts := l.now()
	if n := len(record.Custody); n > 0 && ts.Before(record.Custody[n-1].Timestamp) {
		ts = record.Custody[n-1].Timestamp
	}

	record.Custody = append(record.Custody, CustodyEntry{
		Timestamp:    ts,
		Action:       action,
		ActorID:      actorID,
		Note:         note,
		HashSnapshot: hashSnapshot,
	})
}

// Archive ingests raw artifact bytes into the ledger. It computes the
// content hash, encrypts the bytes, and stores the record with a single
// Created custody entry. Archival is all-or-nothing: on any failure nothing
// is stored and an ArchivalError is returned.
func (l *Ledger) Archive(ctx context.Context, caseID, name string, data []byte, source SourceMetadata, tags []string) (*EvidenceRecord, error) {
	start := l.now()

	contentHash := l.providers.Hash.Hash(data)
	if contentHash == "" {
		err := NewArchivalError("hash", name, fmt.Errorf("hash provider returned empty digest"))
		l.metrics.observeArchival("error", 0, l.now().Sub(start))
		return nil, err
	}

	ciphertext, err := l.providers.Cipher.Encrypt(data)
	if err != nil {
		l.metrics.observeArchival("error", 0, l.now().Sub(start))
		return nil, NewArchivalError("encrypt", name, err)
	}

	record := &EvidenceRecord{
		ID:                uuid.New().String(),
		CaseID:            caseID,
		Name:              name,
		ContentHash:       contentHash,
		EncryptedDigest:   l.providers.Hash.Hash(ciphertext),
		Size:              int64(len(data)),
		Tags:              append([]string(nil), tags...),
		Status:            StatusArchived,
		IntegrityVerified: true,
		Source:            source,
		CreatedAt:         start,
	}
	l.appendEntry(record, ActionCreated, SystemActor, "", contentHash)

	if err := l.store.Put(ctx, record, ciphertext); err != nil {
		l.metrics.observeArchival("error", 0, l.now().Sub(start))
		return nil, NewArchivalError("store", name, err)
	}

	l.metrics.observeArchival("success", record.Size, l.now().Sub(start))
	l.logger.Info("evidence archived",
		"evidence_id", record.ID,
		"case_id", caseID,
		"name", name,
		"size", record.Size,
		"content_hash", contentHash,
	)

	return record.Clone(), nil
}

// Verify recomputes the content hash of the stored evidence and compares it
// to the archived content hash. A Verified custody entry is appended
// regardless of outcome, so the audit trail length is a reliable proxy for
// whether evidence was checked. A mismatch flags the record and is reported
// as data in the outcome, never as an error.
func (l *Ledger) Verify(ctx context.Context, evidenceID, actorID string) (*VerificationOutcome, error) {
	lock := l.lockRecord(evidenceID)
	lock.Lock()
	defer lock.Unlock()

	start := l.now()

	record, ciphertext, err := l.store.Get(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	recomputed := ""
	var note string
	plaintext, err := l.providers.Cipher.Decrypt(ciphertext)
	if err != nil {
		// An unopenable blob is tamper evidence, not an operational error.
		note = fmt.Sprintf("decryption failed: %v", err)
	} else {
		recomputed = l.providers.Hash.Hash(plaintext)
	}

	valid := recomputed != "" && recomputed == record.ContentHash

	l.appendEntry(record, ActionVerified, actorID, note, recomputed)

	if valid {
		record.IntegrityVerified = true
		if record.Status != StatusFlagged {
			record.Status = StatusVerified
		}
	} else {
		record.IntegrityVerified = false
		record.Status = StatusFlagged
	}

	if err := l.store.Update(ctx, record); err != nil {
		return nil, err
	}

	outcome := &VerificationOutcome{
		EvidenceID:     evidenceID,
		Valid:          valid,
		OriginalHash:   record.ContentHash,
		RecomputedHash: recomputed,
		VerifiedAt:     record.Custody[len(record.Custody)-1].Timestamp,
	}

	l.metrics.observeVerification(valid, l.now().Sub(start))
	if !valid {
		l.logger.Warn("integrity mismatch detected",
			"evidence_id", evidenceID,
			"case_id", record.CaseID,
			"original_hash", record.ContentHash,
			"recomputed_hash", recomputed,
		)
	}

	return outcome, nil
}

// ClearFlag is the explicit override that clears a Flagged status. It runs
// a fresh verification under the override actor; only a passing check
// restores the record to Verified. The override itself is audited.
func (l *Ledger) ClearFlag(ctx context.Context, evidenceID, actorID, reason string) (*VerificationOutcome, error) {
	lock := l.lockRecord(evidenceID)
	lock.Lock()

	record, _, err := l.store.Get(ctx, evidenceID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	if record.Status == StatusFlagged {
		record.Status = StatusArchived
		l.appendEntry(record, ActionSigned, actorID, fmt.Sprintf("flag override: %s", reason), "")
		if err := l.store.Update(ctx, record); err != nil {
			lock.Unlock()
			return nil, err
		}
	}
	lock.Unlock()

	return l.Verify(ctx, evidenceID, actorID)
}

// Access records an audited read of the evidence and returns a copy of the
// record. It never changes status.
func (l *Ledger) Access(ctx context.Context, evidenceID, actorID, purpose string) (*EvidenceRecord, error) {
	lock := l.lockRecord(evidenceID)
	lock.Lock()
	defer lock.Unlock()

	record, _, err := l.store.Get(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	l.appendEntry(record, ActionAccessed, actorID, purpose, record.ContentHash)

	if err := l.store.Update(ctx, record); err != nil {
		return nil, err
	}

	l.metrics.observeAccess()
	return record.Clone(), nil
}

// Export produces a signed, reproducible custody bundle. The signature
// covers (evidenceID, contentHash, timestamp, actorID); the bundle carries
// the full custody snapshot at export time so downstream reporting is
// reproducible.
func (l *Ledger) Export(ctx context.Context, evidenceID, actorID, mode string) (*ExportedBundle, error) {
	lock := l.lockRecord(evidenceID)
	lock.Lock()
	defer lock.Unlock()

	record, _, err := l.store.Get(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	exportedAt := l.now()
	payload := fmt.Sprintf("%s|%s|%d|%s", evidenceID, record.ContentHash, exportedAt.UnixNano(), actorID)
	signature, err := l.providers.Signer.Sign([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign export payload: %w", err)
	}

	l.appendEntry(record, ActionExported, actorID,
		fmt.Sprintf("mode=%s scheme=%s", mode, l.providers.Signer.Algorithm()), record.ContentHash)

	if err := l.store.Update(ctx, record); err != nil {
		return nil, err
	}

	l.metrics.observeExport()

	return &ExportedBundle{
		EvidenceID:      evidenceID,
		CaseID:          record.CaseID,
		Mode:            mode,
		ContentHash:     record.ContentHash,
		Signature:       signature,
		SignatureScheme: l.providers.Signer.Algorithm(),
		ExportedAt:      exportedAt,
		ExportedBy:      actorID,
		CustodySnapshot: append([]CustodyEntry(nil), record.Custody...),
	}, nil
}

// HashCertificate builds the hash certificate data contract for a record.
// Certificate generation is a read at the reporting boundary and does not
// touch the custody ledger.
func (l *Ledger) HashCertificate(ctx context.Context, evidenceID string) (*HashCertificate, error) {
	record, _, err := l.store.Get(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	return &HashCertificate{
		EvidenceID:    record.ID,
		FileName:      record.Name,
		Hash:          record.ContentHash,
		HashAlgorithm: l.providers.Hash.Algorithm(),
		GeneratedAt:   l.now(),
		CaseID:        record.CaseID,
		CustodyCount:  len(record.Custody),
	}, nil
}

// HasContent reports whether a record with the given content hash already
// exists in the case. The ingestion pipeline uses this for duplicate
// tagging.
func (l *Ledger) HasContent(ctx context.Context, caseID, contentHash string) (bool, error) {
	record, err := l.store.FindByContentHash(ctx, caseID, contentHash)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// CaseSummary aggregates the evidence archived under a case. The integrity
// status is AllVerified only if every record has a passing verification,
// PartiallyVerified if at least one but not all do, and Unverified
// otherwise.
func (l *Ledger) CaseSummary(ctx context.Context, caseID string) (*CaseSummary, error) {
	records, err := l.store.ByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	summary := &CaseSummary{
		CaseID:  caseID,
		Count:   len(records),
		Records: records,
	}

	verified := 0
	for _, record := range records {
		summary.TotalSize += record.Size
		if record.IntegrityVerified {
			verified++
		}
	}

	switch {
	case len(records) > 0 && verified == len(records):
		summary.IntegrityStatus = IntegrityAllVerified
	case verified > 0:
		summary.IntegrityStatus = IntegrityPartiallyVerified
	default:
		summary.IntegrityStatus = IntegrityUnverified
	}

	return summary, nil
}
