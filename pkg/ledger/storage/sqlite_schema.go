package storage

// SchemaVersion is the current evidence schema version. A mismatch on open
// indicates the database was created by an incompatible build.
const SchemaVersion = 1

// Schema creates the evidence tables. Custody ledgers, tags, and source
// metadata are stored as JSON so a record round-trips losslessly.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	name TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	encrypted_digest TEXT NOT NULL,
	size INTEGER NOT NULL,
	category TEXT,
	tags TEXT NOT NULL,
	status TEXT NOT NULL,
	integrity_verified INTEGER NOT NULL,
	source TEXT NOT NULL,
	created_at TEXT NOT NULL,
	custody TEXT NOT NULL,
	ciphertext BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_case_id ON evidence(case_id);
CREATE INDEX IF NOT EXISTS idx_evidence_content_hash ON evidence(case_id, content_hash);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version on first open.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1`
