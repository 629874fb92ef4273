package db

import (
	"context"
	"time"
)

// Run is one persisted comparator run.
type Run struct {
	ID                  string    `json:"id"`
	StartedAt           time.Time `json:"started_at"`
	Executable          string    `json:"executable"`
	ReferenceExecutable string    `json:"reference_executable"`
	Passes              int       `json:"passes"`
	Errors              int       `json:"errors"`
	MinRatio            float64   `json:"min_ratio"`
	MaxRatio            float64   `json:"max_ratio"`
	Entries             []Entry   `json:"entries,omitempty"`
}

// Entry is the outcome of one (language, benchmark id) pair. Error is set
// instead of the timings for failed entries.
type Entry struct {
	Language    string  `json:"language"`
	BenchmarkID string  `json:"benchmark_id"`
	Current     float64 `json:"current,omitempty"`
	Reference   float64 `json:"reference,omitempty"`
	Ratio       float64 `json:"ratio,omitempty"`
	Bucket      string  `json:"bucket"`
	Error       string  `json:"error,omitempty"`
}

// Store persists comparator runs.
type Store interface {
	Close() error
	SaveRun(ctx context.Context, run Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}
