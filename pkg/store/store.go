// Package store persists import sources and run history in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS import_sources (
	adapter_id    TEXT PRIMARY KEY,
	gazetteer_id  TEXT NOT NULL,
	description   TEXT NOT NULL,
	source_url    TEXT NOT NULL,
	license       TEXT NOT NULL DEFAULT '',
	last_check    INTEGER,
	last_status   INTEGER,
	last_error    TEXT,
	updated_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	report_path     TEXT NOT NULL,
	gazetteer_path  TEXT NOT NULL,
	output_dir      TEXT NOT NULL DEFAULT '',
	records         INTEGER NOT NULL,
	matched         INTEGER NOT NULL,
	unmatched       INTEGER NOT NULL,
	months          INTEGER NOT NULL,
	exclusions      INTEGER NOT NULL,
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_matches (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	record_id  INTEGER NOT NULL,
	commune    TEXT NOT NULL,
	code       TEXT NOT NULL DEFAULT '',
	method     TEXT NOT NULL DEFAULT '',
	score      REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, record_id)
);`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the tables exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close ferme la connexion SQLite.
func (s *Store) Close() error {
	return s.db.Close()
}
