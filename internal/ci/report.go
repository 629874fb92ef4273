package ci

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"jbench/internal/benchmark"
	"jbench/internal/metrics"
	"jbench/internal/ui"
)

// ErrRegressions is returned for a run with at least one SLOWER or failed entry.
var ErrRegressions = errors.New("benchmark regressions detected")

// ErrorBucket labels entries that failed instead of producing a ratio.
const ErrorBucket = "ERROR"

// Row is one reported entry.
type Row struct {
	Entry
	Ratio  float64
	Bucket string
}

// Summary accumulates the outcome of a reporting pass.
type Summary struct {
	Rows     []Row
	Errors   int
	MinRatio float64
	MaxRatio float64
	Buckets  map[string]int
}

func newSummary() *Summary {
	return &Summary{MinRatio: 1.0, MaxRatio: 1.0, Buckets: make(map[string]int)}
}

// Err returns ErrRegressions wrapped with the error count, or nil.
func (s *Summary) Err() error {
	if s.Errors == 0 {
		return nil
	}
	return fmt.Errorf("%d errors: %w", s.Errors, ErrRegressions)
}

// Message is a one-line summary for notifications.
func (s *Summary) Message() string {
	var parts []string
	for _, b := range []string{
		benchmark.Faster.String(),
		benchmark.OK.String(),
		benchmark.SlightlySlower.String(),
		benchmark.Slower.String(),
		ErrorBucket,
	} {
		parts = append(parts, fmt.Sprintf("%s %d", b, s.Buckets[b]))
	}
	return fmt.Sprintf("jbench ci: %d benchmarks, %d errors (%s); min ratio %.2f, max ratio %.2f",
		len(s.Rows), s.Errors, strings.Join(parts, ", "), s.MinRatio, s.MaxRatio)
}

type printer struct {
	w       io.Writer
	summary *Summary
}

func (p *printer) line(level ui.Level, msg string) {
	if level == ui.LevelError {
		p.summary.Errors++
	}
	for _, l := range strings.Split(msg, "\n") {
		fmt.Fprintln(p.w, ui.Paint(level, l))
	}
}

// Report writes one line per entry, sorted by language then id, followed
// by the min/max ratio and the error count. m may be nil.
func Report(w io.Writer, results Results, m *metrics.Metrics) *Summary {
	s := newSummary()
	p := &printer{w: w, summary: s}

	langs := make([]string, 0, len(results))
	for lang := range results {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		ids := make([]string, 0, len(results[lang]))
		for id := range results[lang] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			row := p.entry(results[lang][id])
			s.Rows = append(s.Rows, row)
			s.Buckets[row.Bucket]++
			m.ObserveComparison(row.Bucket)
		}
	}

	m.SetRatioRange(s.MinRatio, s.MaxRatio)
	p.line(ui.LevelInfo, fmt.Sprintf("min ratio: %.2f, max ratio: %.2f", s.MinRatio, s.MaxRatio))
	if s.Errors > 0 {
		fmt.Fprintln(w, ui.Paint(ui.LevelError, fmt.Sprintf("%d errors!", s.Errors)))
	}
	return s
}

func (p *printer) entry(e Entry) Row {
	row := Row{Entry: e, Bucket: ErrorBucket}
	name := fmt.Sprintf("%s(lang:%s)", e.BenchmarkID, e.Language)

	if !e.Failed() {
		ratio, err := benchmark.Ratio(e.Current, e.Reference)
		if err != nil {
			row.Err = err
		} else {
			row.Ratio = ratio
		}
	}
	if row.Failed() {
		p.line(ui.LevelError, fmt.Sprintf("%s:\n%v", name, row.Err))
		return row
	}

	p.summary.MinRatio = min(p.summary.MinRatio, row.Ratio)
	p.summary.MaxRatio = max(p.summary.MaxRatio, row.Ratio)

	bucket := benchmark.Classify(row.Ratio)
	row.Bucket = bucket.String()

	level := ui.LevelInfo
	switch bucket {
	case benchmark.Faster:
		level = ui.LevelOK
	case benchmark.SlightlySlower:
		level = ui.LevelWarning
	case benchmark.Slower:
		level = ui.LevelError
	}
	p.line(level, fmt.Sprintf("%s: %s %s -> %s (%.2f)",
		name, row.Bucket, formatTiming(e.Reference), formatTiming(e.Current), row.Ratio))
	return row
}

func formatTiming(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
