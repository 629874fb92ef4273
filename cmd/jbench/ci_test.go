package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"jbench/internal/benchmark"
	"jbench/internal/ci"
	"jbench/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ciArgs(manifest string, extra ...string) []string {
	args := []string{"ci", "--executable", "cur", "--reference-executable", "ref", "--benchmarks", manifest, "--no-color"}
	return append(args, extra...)
}

func TestCI_OK(t *testing.T) {
	installRunners(t, map[string]*scriptedRunner{"cur": timing(90), "ref": timing(100)})
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	stdout, stderr, err := executeCommand(t, ciArgs(manifest)...)

	require.NoError(t, err)
	assert.Equal(t, "a.b.c(lang:py): OK 100 -> 90 (0.90)\nmin ratio: 0.90, max ratio: 1.00\n", stdout)
	assert.Contains(t, stderr, "1/1: py, a.b.c")
}

func TestCI_Slower(t *testing.T) {
	installRunners(t, map[string]*scriptedRunner{"cur": timing(130), "ref": timing(100)})
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	stdout, _, err := executeCommand(t, ciArgs(manifest)...)

	require.ErrorIs(t, err, ci.ErrRegressions)
	assert.Contains(t, stdout, "a.b.c(lang:py): SLOWER 100 -> 130 (1.30)")
	assert.Contains(t, stdout, "1 errors!")
}

func TestCI_FailedInvocationContinues(t *testing.T) {
	ref := timing(100)
	ref.fail = true
	cur := timing(90)
	installRunners(t, map[string]*scriptedRunner{"cur": cur, "ref": ref})
	manifest := writeFile(t, "bench.yaml", "py:\n  - a.b.c\n  - d.e.f\n")

	stdout, stderr, err := executeCommand(t, ciArgs(manifest)...)

	require.ErrorIs(t, err, ci.ErrRegressions)
	assert.Contains(t, stdout, "a.b.c(lang:py):\n")
	assert.Contains(t, stdout, "reference executable")
	assert.Contains(t, stdout, "2 errors!")
	assert.Contains(t, stderr, "2/2: py, d.e.f")
	assert.Equal(t, 2, cur.count(benchmark.SubtaskCalibrate))
}

func TestCI_PassesFromEnvironment(t *testing.T) {
	t.Setenv("JBENCH_CI_NUM_PASSES", "3")
	cur, ref := timing(90, 95, 91), timing(100, 99, 100)
	installRunners(t, map[string]*scriptedRunner{"cur": cur, "ref": ref})
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	_, _, err := executeCommand(t, ciArgs(manifest)...)

	require.NoError(t, err)
	assert.Equal(t, 3, cur.count(benchmark.SubtaskMeasure))
	assert.Equal(t, 3, ref.count(benchmark.SubtaskMeasure))
	assert.Equal(t, 1, ref.count(benchmark.SubtaskCalibrate))
}

func TestCI_SingleShot(t *testing.T) {
	cur, ref := timing(90), timing(100)
	installRunners(t, map[string]*scriptedRunner{"cur": cur, "ref": ref})
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	_, _, err := executeCommand(t, ciArgs(manifest, "--single-shot", "--num-passes", "2")...)

	require.NoError(t, err)
	assert.Equal(t, []string{"singleShot a.b.c(lang:py)", "singleShot a.b.c(lang:py)"}, cur.calls)
}

func TestCI_InvalidFlags(t *testing.T) {
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	t.Run("Missing executable", func(t *testing.T) {
		_, _, err := executeCommand(t, "ci", "--reference-executable", "ref", "--benchmarks", manifest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "executable")
	})

	t.Run("Zero passes", func(t *testing.T) {
		_, _, err := executeCommand(t, ciArgs(manifest, "--num-passes", "0")...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ci.num_passes must be positive")
	})

	t.Run("Missing manifest", func(t *testing.T) {
		installRunners(t, map[string]*scriptedRunner{"cur": timing(1), "ref": timing(1)})
		_, _, err := executeCommand(t, ciArgs(filepath.Join(t.TempDir(), "missing.json"))...)
		require.Error(t, err)
	})
}

func TestCI_RecordsHistory(t *testing.T) {
	installRunners(t, map[string]*scriptedRunner{"cur": timing(90), "ref": timing(100)})
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"], "cpp": ["x.y.z"]}`)
	dsn := filepath.Join(t.TempDir(), "history.db")

	_, _, err := executeCommand(t, ciArgs(manifest, "--history-dsn", dsn)...)
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "history", "--history-dsn", dsn, "--entries")
	require.NoError(t, err)
	assert.Contains(t, stdout, "EXECUTABLE")
	assert.Contains(t, stdout, "cur")
	assert.Contains(t, stdout, "0.90")
	assert.Contains(t, stdout, "a.b.c(lang:py)")
	assert.Contains(t, stdout, "x.y.z(lang:cpp)")
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.messages = append(f.messages, message)
	return f.err
}

func TestCI_Notify(t *testing.T) {
	t.Setenv("JBENCH_NOTIFICATIONS_SLACK_WEBHOOK_URL", "https://hooks.slack.test/T000")
	installRunners(t, map[string]*scriptedRunner{"cur": timing(130), "ref": timing(100)})
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	n := &fakeNotifier{err: errors.New("slack is down")}
	orig := newNotifier
	t.Cleanup(func() { newNotifier = orig })
	newNotifier = func() (notify.Notifier, error) { return n, nil }

	_, _, err := executeCommand(t, ciArgs(manifest, "--notify")...)

	require.ErrorIs(t, err, ci.ErrRegressions, "notification failures do not change the outcome")
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "SLOWER 1")
	assert.Contains(t, n.messages[0], "max ratio 1.30")
}

func TestCI_NotifyRequiresCredentials(t *testing.T) {
	t.Setenv("SLACK_BOT_USER_TOKEN", "")
	manifest := writeFile(t, "bench.json", `{"py": ["a.b.c"]}`)

	_, _, err := executeCommand(t, ciArgs(manifest, "--notify")...)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifications.slack.enabled requires")
}
