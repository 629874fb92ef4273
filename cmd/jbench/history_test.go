package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"jbench/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	runs  []db.Run
	err   error
	limit int
}

func (s *stubStore) Close() error { return nil }

func (s *stubStore) SaveRun(ctx context.Context, run db.Run) error {
	s.runs = append(s.runs, run)
	return nil
}

func (s *stubStore) RecentRuns(ctx context.Context, limit int) ([]db.Run, error) {
	s.limit = limit
	return s.runs, s.err
}

func useStore(t *testing.T, s db.Store) {
	t.Helper()
	orig := newStore
	t.Cleanup(func() { newStore = orig })
	newStore = func(config db.StoreConfig) (db.Store, error) { return s, nil }
}

func TestHistory_Empty(t *testing.T) {
	stdout, _, err := executeCommand(t, "history", "--history-dsn", filepath.Join(t.TempDir(), "h.db"))

	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)
}

func TestHistory_Listing(t *testing.T) {
	s := &stubStore{runs: []db.Run{{
		ID:                  "0c1f",
		StartedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local),
		Executable:          "./build/bench",
		ReferenceExecutable: "./ref/bench",
		Passes:              2,
		Errors:              1,
		MinRatio:            0.95,
		MaxRatio:            1.3,
		Entries: []db.Entry{
			{Language: "py", BenchmarkID: "a.b.c", Bucket: "SLOWER", Current: 130, Reference: 100, Ratio: 1.3},
			{Language: "py", BenchmarkID: "d.e.f", Bucket: "ERROR", Error: "exit status 1"},
		},
	}}}
	useStore(t, s)

	stdout, _, err := executeCommand(t, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, s.limit)
	assert.Contains(t, stdout, "0c1f")
	assert.Contains(t, stdout, "2026-03-01 12:00:00")
	assert.Contains(t, stdout, "1.30")
	assert.NotContains(t, stdout, "a.b.c", "entries are only listed on request")

	stdout, _, err = executeCommand(t, "history", "--entries")
	require.NoError(t, err)
	assert.Equal(t, 10, s.limit)
	assert.Contains(t, stdout, "a.b.c(lang:py)")
	assert.Contains(t, stdout, "d.e.f(lang:py)")
}

func TestHistory_StoreError(t *testing.T) {
	useStore(t, &stubStore{err: errors.New("connection refused")})

	_, _, err := executeCommand(t, "history")
	require.EqualError(t, err, "connection refused")
}

func TestHistory_InvalidDriver(t *testing.T) {
	_, _, err := executeCommand(t, "history", "--history-driver", "mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.driver must be sqlite or postgres")
}
