package ledger

import (
	"context"
	"time"
)

// Status describes the lifecycle state of a piece of evidence.
type Status string

const (
	// StatusArchived is the initial state after a successful archival.
	StatusArchived Status = "archived"

	// StatusProcessing marks evidence currently being worked on.
	StatusProcessing Status = "processing"

	// StatusVerified marks evidence whose most recent integrity check passed.
	StatusVerified Status = "verified"

	// StatusFlagged marks evidence where an integrity check detected drift.
	// A flag is only cleared by an explicit override followed by a passing
	// verification.
	StatusFlagged Status = "flagged"
)

// Action identifies the kind of audited action recorded in a custody entry.
type Action string

const (
	ActionCreated  Action = "created"
	ActionAccessed Action = "accessed"
	ActionVerified Action = "verified"
	ActionExported Action = "exported"
	ActionSigned   Action = "signed"
)

// IntegrityStatus summarizes verification state across a case.
type IntegrityStatus string

const (
	// IntegrityAllVerified means every record in the case is verified.
	IntegrityAllVerified IntegrityStatus = "all_verified"

	// IntegrityPartiallyVerified means at least one but not all records
	// are verified.
	IntegrityPartiallyVerified IntegrityStatus = "partially_verified"

	// IntegrityUnverified means no record in the case is verified.
	IntegrityUnverified IntegrityStatus = "unverified"
)

// TagDuplicate is applied automatically when an artifact's content hash
// matches an already-archived record in the same case. Duplicates are
// evidence of interest, not an error.
const TagDuplicate = "duplicate"

// SystemActor is the actor recorded for actions the ledger performs itself,
// such as the initial custody entry at archival.
const SystemActor = "system"

// CustodyEntry is one audited action in a record's chain of custody.
type CustodyEntry struct {
	// Timestamp is when the action occurred. Entries are strictly
	// non-decreasing in timestamp across a record's custody ledger.
	Timestamp time.Time `json:"timestamp"`

	// Action is the kind of audited action.
	Action Action `json:"action"`

	// ActorID identifies who performed the action.
	ActorID string `json:"actor_id"`

	// Note is optional free-form context (e.g. access purpose).
	Note string `json:"note,omitempty"`

	// HashSnapshot is the content hash as observed at this action. Comparing
	// snapshots across entries exposes drift between audited actions.
	HashSnapshot string `json:"hash_snapshot,omitempty"`
}

// SourceMetadata describes where an artifact's bytes came from. The ledger
// does not care how the bytes were obtained; this is descriptive only.
type SourceMetadata struct {
	Source      string `json:"source"`
	Database    string `json:"database,omitempty"`
	Table       string `json:"table,omitempty"`
	RecordCount int    `json:"record_count,omitempty"`
}

// EvidenceRecord represents one archived artifact with its full chain of
// custody. Once archived, a record is owned exclusively by the Ledger; no
// other component mutates it directly.
type EvidenceRecord struct {
	// Identity. ID and CaseID are immutable after creation.
	ID     string `json:"id"`
	CaseID string `json:"case_id"`
	Name   string `json:"name"`

	// ContentHash is the hash of the original plaintext bytes. It is the
	// content address of the record and the tamper-detection baseline;
	// it never changes.
	ContentHash string `json:"content_hash"`

	// EncryptedDigest is the hash of the ciphertext at rest. It changes
	// only if the storage blob is re-encrypted.
	EncryptedDigest string `json:"encrypted_digest"`

	// Descriptive fields, mutable by tagging actions only.
	Size     int64    `json:"size"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Status            Status `json:"status"`
	IntegrityVerified bool   `json:"integrity_verified"`

	Source    SourceMetadata `json:"source"`
	CreatedAt time.Time      `json:"created_at"`

	// Custody is the append-only chain of custody. The first entry is
	// always a Created entry; the sequence is never truncated or reordered.
	Custody []CustodyEntry `json:"custody"`
}

// Clone returns a deep copy of the record so callers cannot mutate ledger
// state through returned values.
func (r *EvidenceRecord) Clone() *EvidenceRecord {
	cp := *r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Custody = append([]CustodyEntry(nil), r.Custody...)
	return &cp
}

// VerificationOutcome reports the result of an integrity check. A mismatch
// is represented as data, never as an error, so tamper evidence is itself
// preserved and auditable.
type VerificationOutcome struct {
	EvidenceID     string    `json:"evidence_id"`
	Valid          bool      `json:"valid"`
	OriginalHash   string    `json:"original_hash"`
	RecomputedHash string    `json:"recomputed_hash"`
	VerifiedAt     time.Time `json:"verified_at"`
}

// ExportedBundle is the reproducible output of an export: a signature over
// the export payload plus the full custody snapshot at export time.
type ExportedBundle struct {
	EvidenceID      string         `json:"evidence_id"`
	CaseID          string         `json:"case_id"`
	Mode            string         `json:"mode"`
	ContentHash     string         `json:"content_hash"`
	Signature       string         `json:"signature"`
	SignatureScheme string         `json:"signature_scheme"`
	ExportedAt      time.Time      `json:"exported_at"`
	ExportedBy      string         `json:"exported_by"`
	CustodySnapshot []CustodyEntry `json:"custody_snapshot"`
}

// HashCertificate is the stable data contract consumed by report
// generation. Formatting is out of scope; this is the data only.
type HashCertificate struct {
	EvidenceID    string    `json:"evidence_id"`
	FileName      string    `json:"file_name"`
	Hash          string    `json:"hash"`
	HashAlgorithm string    `json:"hash_algorithm"`
	GeneratedAt   time.Time `json:"generated_at"`
	CaseID        string    `json:"case_id"`
	CustodyCount  int       `json:"custody_entry_count"`
}

// CaseSummary aggregates the evidence archived under a case.
type CaseSummary struct {
	CaseID          string            `json:"case_id"`
	Count           int               `json:"count"`
	TotalSize       int64             `json:"total_size"`
	IntegrityStatus IntegrityStatus   `json:"integrity_status"`
	Records         []*EvidenceRecord `json:"records"`
}

// Store is the injectable registry backing the ledger. Implementations
// must be safe for concurrent use. The ciphertext blob is stored alongside
// the record; Put is atomic (no partial record is ever visible).
type Store interface {
	// Put stores a record and its ciphertext blob. It fails if a record
	// with the same ID already exists.
	Put(ctx context.Context, record *EvidenceRecord, ciphertext []byte) error

	// Get retrieves a record and its ciphertext by evidence ID.
	Get(ctx context.Context, id string) (*EvidenceRecord, []byte, error)

	// Update replaces the stored record (custody appends, status changes).
	// The ciphertext blob is left untouched.
	Update(ctx context.Context, record *EvidenceRecord) error

	// ByCase returns all records for a case, ordered by creation time.
	ByCase(ctx context.Context, caseID string) ([]*EvidenceRecord, error)

	// FindByContentHash returns the record in caseID with the given
	// content hash, or nil if none exists.
	FindByContentHash(ctx context.Context, caseID, contentHash string) (*EvidenceRecord, error)

	// All returns every stored record.
	All(ctx context.Context) ([]*EvidenceRecord, error)

	// Close releases resources held by the store.
	Close() error
}
