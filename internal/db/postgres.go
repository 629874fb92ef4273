package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{sqlStore{db: db, placeholder: dollar}}
	if err := store.migrate(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ns BIGINT NOT NULL,
		executable TEXT NOT NULL,
		reference_executable TEXT NOT NULL,
		passes INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		min_ratio DOUBLE PRECISION NOT NULL,
		max_ratio DOUBLE PRECISION NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS run_entries (
		run_id TEXT NOT NULL REFERENCES runs(id),
		language TEXT NOT NULL,
		benchmark_id TEXT NOT NULL,
		current_value DOUBLE PRECISION,
		reference_value DOUBLE PRECISION,
		ratio DOUBLE PRECISION,
		bucket TEXT NOT NULL,
		error_text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, language, benchmark_id)
	);`,
}
