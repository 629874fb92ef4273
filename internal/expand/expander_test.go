package expand

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jbench/internal/benchmark"
	"jbench/internal/metrics"
	"jbench/internal/template"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calibrations map[string]int
	measures     map[string]int
	results      map[string][]benchmark.Result
	failOn       string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		calibrations: map[string]int{},
		measures:     map[string]int{},
		results:      map[string][]benchmark.Result{},
	}
}

func (f *fakeRunner) Calibrate(ctx context.Context, m benchmark.Measurement) (int, error) {
	f.calibrations[m.Key()]++
	if m.Key() == f.failOn {
		return 0, &benchmark.InvocationError{Command: []string{"bench"}, ExitCode: 1, Err: errors.New("exit status 1")}
	}
	return 100, nil
}

func (f *fakeRunner) Measure(ctx context.Context, m benchmark.Measurement, iterations int) (benchmark.Result, error) {
	key := m.Key()
	n := f.measures[key]
	f.measures[key]++
	runs := f.results[key]
	if len(runs) == 0 {
		return benchmark.Result{Times: map[string]float64{"main": 1}}, nil
	}
	return runs[n%len(runs)], nil
}

func (f *fakeRunner) SingleShot(ctx context.Context, m benchmark.Measurement) (benchmark.Result, error) {
	return benchmark.Result{}, errors.New("not used")
}

func mustParse(t *testing.T, src string) *template.Template {
	t.Helper()
	tpl, err := template.Parse(src)
	require.NoError(t, err)
	return tpl
}

func TestExpand_SharedMeasurement(t *testing.T) {
	runner := newFakeRunner()
	runner.results["a.b.c(p:1)"] = []benchmark.Result{{
		Times:  map[string]float64{"main": 12.4},
		Memory: map[string]float64{"other": 2048},
	}}

	e := New(runner, 1, nil)
	out, err := e.Expand(context.Background(), mustParse(t, "x=${a.b.c(p:1)[main]} y=${a.b.c(p:1)[other]}"))
	require.NoError(t, err)

	assert.Equal(t, "x=12 y=2048", string(out))
	assert.Equal(t, 1, runner.calibrations["a.b.c(p:1)"])
	assert.Equal(t, 1, runner.measures["a.b.c(p:1)"])
}

func TestExpand_NoMacros(t *testing.T) {
	runner := newFakeRunner()
	in := "# Title\n\n  indented $ text\n"

	out, err := New(runner, 1, nil).Expand(context.Background(), mustParse(t, in))
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
	assert.Empty(t, runner.calibrations)
}

func TestExpand_CountKeepsMinimum(t *testing.T) {
	runner := newFakeRunner()
	runner.results["a.b.c()"] = []benchmark.Result{
		{Times: map[string]float64{"main": 30, "setup": 1}},
		{Times: map[string]float64{"main": 10, "setup": 5}},
		{Times: map[string]float64{"main": 20, "setup": 3}},
	}

	out, err := New(runner, 3, nil).Expand(context.Background(), mustParse(t, "${a.b.c[main]}/${a.b.c[setup]}"))
	require.NoError(t, err)

	assert.Equal(t, "10/1.0", string(out))
	assert.Equal(t, 1, runner.calibrations["a.b.c()"], "calibration runs once")
	assert.Equal(t, 3, runner.measures["a.b.c()"])
}

func TestResolve_ProgressSorted(t *testing.T) {
	runner := newFakeRunner()
	var progress bytes.Buffer
	m := metrics.NewMetrics()

	src := "${z.z.z[main]}"
	for i := 0; i < 10; i++ {
		src += "${a.b.c(n:" + string(rune('0'+i)) + ")[main]}"
	}

	e := New(runner, 1, &progress)
	e.Metrics = m
	results, err := e.Resolve(context.Background(), mustParse(t, src))
	require.NoError(t, err)
	assert.Len(t, results, 11)

	lines := strings.Split(strings.TrimRight(progress.String(), "\n"), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, " 1/11: a.b.c(n:0)", lines[0])
	assert.Equal(t, "11/11: z.z.z()", lines[10])
	assert.Equal(t, 11.0, testutil.ToFloat64(m.Measurements))
}

func TestExpand_FailureAborts(t *testing.T) {
	runner := newFakeRunner()
	runner.failOn = "a.b.c()"

	out, err := New(runner, 1, nil).Expand(context.Background(), mustParse(t, "${a.b.c[main]} ${z.z.z[main]}"))
	assert.Nil(t, out)

	var ierr *benchmark.InvocationError
	require.True(t, errors.As(err, &ierr))
	assert.Zero(t, runner.calibrations["z.z.z()"], "run stops at the first failure")
}

func TestExpand_MissingKey(t *testing.T) {
	out, err := New(newFakeRunner(), 1, nil).Expand(context.Background(), mustParse(t, "${a.b.c[nope]}"))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, benchmark.ErrMissingKey)
}

func TestWriteOutput(t *testing.T) {
	t.Run("Stdout", func(t *testing.T) {
		for _, path := range []string{"", "-"} {
			var buf bytes.Buffer
			require.NoError(t, WriteOutput(path, []byte("report"), &buf))
			assert.Equal(t, "report", buf.String())
		}
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.md")
		require.NoError(t, os.WriteFile(path, []byte("old contents that are longer"), 0644))

		var buf bytes.Buffer
		require.NoError(t, WriteOutput(path, []byte("new"), &buf))
		assert.Empty(t, buf.String())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("Missing Directory", func(t *testing.T) {
		err := WriteOutput(filepath.Join(t.TempDir(), "missing", "report.md"), []byte("x"), &bytes.Buffer{})
		assert.Error(t, err)
	})
}
