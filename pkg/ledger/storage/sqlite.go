package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"casefile-hq/quaestor/pkg/ledger"
)

// SQLiteConfig contains configuration for the SQLite evidence store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the ledger.Store interface backed by SQLite.
// Records round-trip losslessly, including the full custody ledger.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens a SQLite evidence store, creating the schema if
// needed and enabling WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "ledger.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite evidence store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the schema and verifies the schema version.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return ledger.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return ledger.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return ledger.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return ledger.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return ledger.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return ledger.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Put stores a record and its ciphertext blob.
func (s *SQLiteStore) Put(ctx context.Context, record *ledger.EvidenceRecord, ciphertext []byte) error {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return ledger.NewStorageError("sqlite", "put", err)
	}
	source, err := json.Marshal(record.Source)
	if err != nil {
		return ledger.NewStorageError("sqlite", "put", err)
	}
	custody, err := json.Marshal(record.Custody)
	if err != nil {
		return ledger.NewStorageError("sqlite", "put", err)
	}

	query := `
		INSERT INTO evidence (
			id, case_id, name, content_hash, encrypted_digest, size,
			category, tags, status, integrity_verified, source,
			created_at, custody, ciphertext
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.CaseID, record.Name, record.ContentHash,
		record.EncryptedDigest, record.Size,
		record.Category, string(tags), string(record.Status),
		record.IntegrityVerified, string(source),
		record.CreatedAt.Format(time.RFC3339Nano), string(custody), ciphertext,
	)
	if err != nil {
		return ledger.NewStorageError("sqlite", "put", err)
	}

	return nil
}

// Get retrieves a record and its ciphertext by evidence ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*ledger.EvidenceRecord, []byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, case_id, name, content_hash, encrypted_digest, size,
		        category, tags, status, integrity_verified, source,
		        created_at, custody, ciphertext
		 FROM evidence WHERE id = ?`, id)

	record, ciphertext, err := s.scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil, ledger.NewNotFoundError(id)
	}
	if err != nil {
		return nil, nil, ledger.NewStorageError("sqlite", "get", err)
	}

	return record, ciphertext, nil
}

// Update replaces the stored record, leaving the ciphertext untouched.
func (s *SQLiteStore) Update(ctx context.Context, record *ledger.EvidenceRecord) error {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return ledger.NewStorageError("sqlite", "update", err)
	}
	source, err := json.Marshal(record.Source)
	if err != nil {
		return ledger.NewStorageError("sqlite", "update", err)
	}
	custody, err := json.Marshal(record.Custody)
	if err != nil {
		return ledger.NewStorageError("sqlite", "update", err)
	}

	query := `
		UPDATE evidence SET
			name = ?, content_hash = ?, encrypted_digest = ?, size = ?,
			category = ?, tags = ?, status = ?, integrity_verified = ?,
			source = ?, custody = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		record.Name, record.ContentHash, record.EncryptedDigest, record.Size,
		record.Category, string(tags), string(record.Status),
		record.IntegrityVerified, string(source), string(custody),
		record.ID,
	)
	if err != nil {
		return ledger.NewStorageError("sqlite", "update", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ledger.NewStorageError("sqlite", "update", err)
	}
	if affected == 0 {
		return ledger.NewNotFoundError(record.ID)
	}

	return nil
}

// ByCase returns all records for a case, ordered by creation time.
func (s *SQLiteStore) ByCase(ctx context.Context, caseID string) ([]*ledger.EvidenceRecord, error) {
	return s.queryRecords(ctx,
		`SELECT id, case_id, name, content_hash, encrypted_digest, size,
		        category, tags, status, integrity_verified, source,
		        created_at, custody, ciphertext
		 FROM evidence WHERE case_id = ? ORDER BY created_at, id`, caseID)
}

// FindByContentHash returns the record in caseID with the given content
// hash, or nil if none exists.
func (s *SQLiteStore) FindByContentHash(ctx context.Context, caseID, contentHash string) (*ledger.EvidenceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, case_id, name, content_hash, encrypted_digest, size,
		        category, tags, status, integrity_verified, source,
		        created_at, custody, ciphertext
		 FROM evidence WHERE case_id = ? AND content_hash = ? LIMIT 1`,
		caseID, contentHash)

	record, _, err := s.scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "find_by_content_hash", err)
	}

	return record, nil
}

// All returns every stored record.
func (s *SQLiteStore) All(ctx context.Context) ([]*ledger.EvidenceRecord, error) {
	return s.queryRecords(ctx,
		`SELECT id, case_id, name, content_hash, encrypted_digest, size,
		        category, tags, status, integrity_verified, source,
		        created_at, custody, ciphertext
		 FROM evidence ORDER BY created_at, id`)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite evidence store closed")
	return nil
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*ledger.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*ledger.EvidenceRecord{}
	for rows.Next() {
		record, _, err := s.scanRecord(rows)
		if err != nil {
			return nil, ledger.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanRecord(row rowScanner) (*ledger.EvidenceRecord, []byte, error) {
	var record ledger.EvidenceRecord
	var tags, status, source, createdAt, custody string
	var category sql.NullString
	var ciphertext []byte

	err := row.Scan(
		&record.ID, &record.CaseID, &record.Name, &record.ContentHash,
		&record.EncryptedDigest, &record.Size,
		&category, &tags, &status, &record.IntegrityVerified, &source,
		&createdAt, &custody, &ciphertext,
	)
	if err != nil {
		return nil, nil, err
	}

	if category.Valid {
		record.Category = category.String
	}
	record.Status = ledger.Status(status)

	if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
		return nil, nil, fmt.Errorf("corrupt tags column: %w", err)
	}
	if err := json.Unmarshal([]byte(source), &record.Source); err != nil {
		return nil, nil, fmt.Errorf("corrupt source column: %w", err)
	}
	if err := json.Unmarshal([]byte(custody), &record.Custody); err != nil {
		return nil, nil, fmt.Errorf("corrupt custody column: %w", err)
	}

	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt created_at column: %w", err)
	}

	return &record, ciphertext, nil
}
