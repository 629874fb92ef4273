// Package expand fills report templates with live benchmark results.
package expand

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"jbench/internal/benchmark"
	"jbench/internal/metrics"
	"jbench/internal/template"

	"github.com/moby/sys/atomicwriter"
)

// Expander resolves the measurements of a template through a Runner.
type Expander struct {
	Runner benchmark.Runner
	// Count is the number of measure calls per measurement; the key-wise minimum is kept.
	// Values substituted from one measurement may come from different runs.
	Count    int
	Progress io.Writer
	Metrics  *metrics.Metrics
}

func New(runner benchmark.Runner, count int, progress io.Writer) *Expander {
	return &Expander{Runner: runner, Count: count, Progress: progress}
}

// Resolve invokes every distinct measurement of tpl exactly once, in sorted
// key order, and returns the results keyed by measurement key. The first
// failure aborts.
func (e *Expander) Resolve(ctx context.Context, tpl *template.Template) (map[string]benchmark.Result, error) {
	progress := e.Progress
	if progress == nil {
		progress = io.Discard
	}

	ms := tpl.Measurements()
	results := make(map[string]benchmark.Result, len(ms))
	width := len(strconv.Itoa(len(ms)))

	for i, m := range ms {
		key := m.Key()
		fmt.Fprintf(progress, "%*d/%d: %s\n", width, i+1, len(ms), key)

		res, err := e.measure(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("measurement %s: %w", key, err)
		}
		results[key] = res
		e.Metrics.ObserveMeasurement()
	}
	return results, nil
}

func (e *Expander) measure(ctx context.Context, m benchmark.Measurement) (benchmark.Result, error) {
	iterations, err := e.Runner.Calibrate(ctx, m)
	if err != nil {
		return benchmark.Result{}, err
	}
	slog.Debug("Calibrated measurement", "measurement", m.Key(), "iterations", iterations)

	var best benchmark.Result
	for i := 0; i < max(1, e.Count); i++ {
		res, err := e.Runner.Measure(ctx, m, iterations)
		if err != nil {
			return benchmark.Result{}, err
		}
		if i == 0 {
			best = res
		} else {
			best = benchmark.MinResult(best, res)
		}
	}
	return best, nil
}

// Expand resolves tpl and renders it into memory. Nothing is returned
// unless every measurement and every macro succeeded.
func (e *Expander) Expand(ctx context.Context, tpl *template.Template) ([]byte, error) {
	results, err := e.Resolve(ctx, tpl)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tpl.Render(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsStdout reports whether path designates standard output.
func IsStdout(path string) bool {
	return path == "" || path == "-"
}

// WriteOutput writes data to stdout when path is "" or "-", otherwise it
// replaces path atomically so a failed write never leaves a partial file.
func WriteOutput(path string, data []byte, stdout io.Writer) error {
	if IsStdout(path) {
		_, err := stdout.Write(data)
		return err
	}
	if err := atomicwriter.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output %s: %w", path, err)
	}
	return nil
}
