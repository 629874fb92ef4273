package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{sqlStore{db: db, placeholder: questionMark}}
	if err := store.migrate(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ns INTEGER NOT NULL,
		executable TEXT NOT NULL,
		reference_executable TEXT NOT NULL,
		passes INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		min_ratio REAL NOT NULL,
		max_ratio REAL NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS run_entries (
		run_id TEXT NOT NULL REFERENCES runs(id),
		language TEXT NOT NULL,
		benchmark_id TEXT NOT NULL,
		current_value REAL,
		reference_value REAL,
		ratio REAL,
		bucket TEXT NOT NULL,
		error_text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, language, benchmark_id)
	);`,
}
