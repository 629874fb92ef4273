package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqlStore implements Store on database/sql. The two backends differ only
// in driver, placeholder syntax and schema DDL.
type sqlStore struct {
	db          *sql.DB
	placeholder func(n int) string
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func (s *sqlStore) query(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(s.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) migrate(queries []string) error {
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its entries in one transaction.
func (s *sqlStore) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.query(`INSERT INTO runs
		(id, started_at_ns, executable, reference_executable, passes, errors, min_ratio, max_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.StartedAt.UnixNano(), run.Executable, run.ReferenceExecutable,
		run.Passes, run.Errors, run.MinRatio, run.MaxRatio)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.query(`INSERT INTO run_entries
		(run_id, language, benchmark_id, current_value, reference_value, ratio, bucket, error_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range run.Entries {
		var cur, ref, ratio sql.NullFloat64
		if e.Error == "" {
			cur = sql.NullFloat64{Float64: e.Current, Valid: true}
			ref = sql.NullFloat64{Float64: e.Reference, Valid: true}
			ratio = sql.NullFloat64{Float64: e.Ratio, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, e.Language, e.BenchmarkID, cur, ref, ratio, e.Bucket, e.Error); err != nil {
			return fmt.Errorf("failed to insert entry %s/%s: %w", e.Language, e.BenchmarkID, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first, with their entries.
func (s *sqlStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, s.query(`SELECT id, started_at_ns, executable, reference_executable,
		passes, errors, min_ratio, max_ratio FROM runs ORDER BY started_at_ns DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ns int64
		if err := rows.Scan(&r.ID, &ns, &r.Executable, &r.ReferenceExecutable,
			&r.Passes, &r.Errors, &r.MinRatio, &r.MaxRatio); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, ns).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		entries, err := s.entries(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Entries = entries
	}
	return runs, nil
}

func (s *sqlStore) entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.query(`SELECT language, benchmark_id, current_value, reference_value,
		ratio, bucket, error_text FROM run_entries WHERE run_id = ? ORDER BY language, benchmark_id`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var cur, ref, ratio sql.NullFloat64
		if err := rows.Scan(&e.Language, &e.BenchmarkID, &cur, &ref, &ratio, &e.Bucket, &e.Error); err != nil {
			return nil, err
		}
		e.Current, e.Reference, e.Ratio = cur.Float64, ref.Float64, ratio.Float64
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
