// Package ci compares a candidate benchmark executable against a reference
// build and reports timing regressions.
package ci

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"jbench/internal/benchmark"
	"jbench/internal/manifest"
)

// TimingKey is the result key compared between the two executables.
const TimingKey = "main"

// Entry is the outcome for one (language, benchmark id) pair: either both
// timings or Err.
type Entry struct {
	Language    string
	BenchmarkID string
	Current     float64
	Reference   float64
	Err         error
}

// Failed reports whether the entry carries an error instead of timings.
func (e Entry) Failed() bool {
	return e.Err != nil
}

// Results maps language to benchmark id to entry.
type Results map[string]map[string]Entry

func (r Results) set(e Entry) {
	if r[e.Language] == nil {
		r[e.Language] = make(map[string]Entry)
	}
	r[e.Language][e.BenchmarkID] = e
}

// Comparator runs every manifest benchmark on both executables.
type Comparator struct {
	Current   benchmark.Runner
	Reference benchmark.Runner
	// Passes is the number of measure calls per side; defaults to 1.
	Passes int
	// SingleShot replaces calibrate+measure with one "-j -c1" call per pass.
	SingleShot bool
	Progress   io.Writer
}

// Run walks languages in sorted order and ids in manifest order. A failed
// invocation is recorded on its entry and the run continues.
func (c *Comparator) Run(ctx context.Context, m manifest.Manifest) Results {
	progress := c.Progress
	if progress == nil {
		progress = io.Discard
	}

	results := make(Results)
	total := m.Total()
	n := 1
	for _, lang := range m.Languages() {
		for _, id := range m[lang] {
			fmt.Fprintf(progress, "%d/%d: %s, %s\n", n, total, lang, id)
			n++

			e := c.compare(ctx, lang, id)
			if e.Failed() {
				slog.Debug("Benchmark comparison failed", "lang", lang, "id", id, "error", e.Err)
			}
			results.set(e)
		}
	}
	return results
}

func (c *Comparator) compare(ctx context.Context, lang, id string) Entry {
	e := Entry{Language: lang, BenchmarkID: id}
	m := benchmark.Measurement{
		Benchmark: id,
		Params:    []benchmark.Param{{Name: "lang", Value: lang}},
	}

	var curIterations, refIterations int
	if !c.SingleShot {
		var err error
		if curIterations, err = c.Current.Calibrate(ctx, m); err != nil {
			e.Err = fmt.Errorf("current executable: %w", err)
			return e
		}
		if refIterations, err = c.Reference.Calibrate(ctx, m); err != nil {
			e.Err = fmt.Errorf("reference executable: %w", err)
			return e
		}
	}

	passes := max(1, c.Passes)
	current := make([]float64, 0, passes)
	reference := make([]float64, 0, passes)
	for i := 0; i < passes; i++ {
		cur, err := c.timing(ctx, c.Current, m, curIterations)
		if err != nil {
			e.Err = fmt.Errorf("current executable: %w", err)
			return e
		}
		ref, err := c.timing(ctx, c.Reference, m, refIterations)
		if err != nil {
			e.Err = fmt.Errorf("reference executable: %w", err)
			return e
		}
		current = append(current, cur)
		reference = append(reference, ref)
	}

	cur, ref, err := benchmark.ClosestPair(current, reference)
	if err != nil {
		e.Err = err
		return e
	}
	e.Current, e.Reference = cur, ref
	return e
}

func (c *Comparator) timing(ctx context.Context, r benchmark.Runner, m benchmark.Measurement, iterations int) (float64, error) {
	var res benchmark.Result
	var err error
	if c.SingleShot {
		res, err = r.SingleShot(ctx, m)
	} else {
		res, err = r.Measure(ctx, m, iterations)
	}
	if err != nil {
		return 0, err
	}
	return res.Time(TimingKey)
}
