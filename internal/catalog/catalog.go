// Package catalog is the persisted SQLite-backed store for files,
// tracks, jobs, operations, and the transcription/classification signal
// cache (spec.md §4.1, §6.1). Generalizes the teacher's
// internal/store.SQLiteStore connection/migration pattern to the wider
// schema this domain needs.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// schemaVersion is the catalog database's own internal migration
// version — unrelated to policy.CurrentSchemaVersion, which versions
// policy documents, not the database.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL,
	directory TEXT NOT NULL,
	extension TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	modified_at TEXT NOT NULL,
	content_hash TEXT DEFAULT '',
	container_format TEXT DEFAULT '',
	scanned_at TEXT NOT NULL,
	scan_status TEXT NOT NULL DEFAULT 'pending',
	scan_error TEXT DEFAULT '',
	plugin_metadata TEXT DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_files_scan_status ON files(scan_status);

CREATE TABLE IF NOT EXISTS tracks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	track_index INTEGER NOT NULL,
	kind TEXT NOT NULL,
	codec TEXT DEFAULT '',
	language TEXT DEFAULT 'und',
	title TEXT DEFAULT '',
	is_default INTEGER NOT NULL DEFAULT 0,
	is_forced INTEGER NOT NULL DEFAULT 0,
	channels INTEGER NOT NULL DEFAULT 0,
	channel_layout TEXT DEFAULT '',
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	frame_rate REAL NOT NULL DEFAULT 0,
	color_transfer TEXT DEFAULT '',
	color_primaries TEXT DEFAULT '',
	color_space TEXT DEFAULT '',
	duration_seconds REAL NOT NULL DEFAULT 0,
	UNIQUE(file_id, track_index)
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	file_id INTEGER NOT NULL DEFAULT 0,
	file_path TEXT NOT NULL,
	job_type TEXT NOT NULL,
	status TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 100,
	policy_name TEXT DEFAULT '',
	policy_json TEXT DEFAULT '',
	progress_percent REAL NOT NULL DEFAULT 0,
	progress_json TEXT DEFAULT '',
	created_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT,
	worker_id TEXT DEFAULT '',
	summary_json TEXT DEFAULT '',
	error_message TEXT DEFAULT '',
	output_path TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_priority ON jobs(status, priority, created_at);

CREATE TABLE IF NOT EXISTS operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	job_id TEXT DEFAULT '',
	operation_type TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	completed_at TEXT,
	backup_path TEXT DEFAULT '',
	details_json TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_operations_file ON operations(file_id);

CREATE TABLE IF NOT EXISTS transcription_results (
	track_id INTEGER PRIMARY KEY,
	file_hash TEXT NOT NULL,
	detected_language TEXT DEFAULT '',
	confidence_score REAL NOT NULL DEFAULT 0,
	track_type TEXT DEFAULT '',
	plugin_name TEXT DEFAULT '',
	transcript_sample TEXT DEFAULT '',
	segments_json TEXT DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS track_classifications (
	track_id INTEGER PRIMARY KEY,
	original_dubbed_status TEXT DEFAULT '',
	commentary_status INTEGER NOT NULL DEFAULT 0,
	confidence_score REAL NOT NULL DEFAULT 0,
	detection_method TEXT DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the SQLite-backed catalog (spec.md §6.1 "Persisted catalog").
// Writes are serialized through mu's write lock and reads share its read
// lock, matching the teacher's SQLiteStore — SQLite's single-writer
// model makes a broader application-level mutex simpler than
// per-statement retry loops.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open creates or opens the catalog database at dbPath, applying the
// schema and any pending migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert schema version: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	case version > schemaVersion:
		db.Close()
		return nil, fmt.Errorf("catalog: database schema version %d is newer than this binary supports (%d)", version, schemaVersion)
	case version < schemaVersion:
		// No migrations defined yet beyond version 1; future ALTER TABLE
		// steps land here following the teacher's version-gated pattern.
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("update schema version: %w", err)
		}
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the catalog database file path.
func (s *Store) Path() string {
	return s.path
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
