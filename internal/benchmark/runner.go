package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Subtask selectors understood by the joint-benchmarks executable.
const (
	SubtaskCalibrate  = "measureIterationsCount"
	SubtaskMeasure    = "invokeBenchmark"
	SubtaskSingleShot = "singleShot"
)

// Runner defines the interface for invoking the external benchmark executable.
type Runner interface {
	// Calibrate returns the iteration count needed for a stable timing.
	Calibrate(ctx context.Context, m Measurement) (int, error)
	// Measure runs the benchmark with an explicit iteration count.
	Measure(ctx context.Context, m Measurement, iterations int) (Result, error)
	// SingleShot runs the benchmark once in the "-j -c1" convenience mode.
	SingleShot(ctx context.Context, m Measurement) (Result, error)
}

// Observer is notified after every subprocess invocation.
type Observer interface {
	ObserveInvocation(subtask string, elapsed time.Duration, err error)
}

// InvocationError is a non-zero exit (or failure to start) of the executable.
type InvocationError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %q failed (exit status %d): %v", strings.Join(e.Command, " "), e.ExitCode, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", s)
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", s)
	}
	return b.String()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// DecodeError means the executable succeeded but printed an unexpected payload.
type DecodeError struct {
	Command []string
	Output  string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("command %q produced invalid output: %v\noutput:\n%s", strings.Join(e.Command, " "), e.Err, e.Output)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// execCommand allows mocking in tests.
var execCommand = exec.CommandContext

// ExecRunner implements Runner by spawning the executable at Path.
type ExecRunner struct {
	Path string
	// ExtraArgs are appended after the subtask selector, e.g. "--verbosity", "2".
	ExtraArgs []string
	Observer  Observer
}

func NewExecRunner(path string, extraArgs ...string) *ExecRunner {
	return &ExecRunner{Path: path, ExtraArgs: extraArgs}
}

func (r *ExecRunner) Calibrate(ctx context.Context, m Measurement) (int, error) {
	args := []string{"--subtask", SubtaskCalibrate}
	args = append(args, r.ExtraArgs...)
	args = append(args, m.Benchmark)
	args = append(args, m.ParamArgs()...)

	var out calibration
	if err := r.invoke(ctx, SubtaskCalibrate, args, &out); err != nil {
		return 0, err
	}
	if out.IterationsCount == nil {
		return 0, &DecodeError{Command: r.command(args), Err: fmt.Errorf("iterations_count: %w", ErrMissingKey)}
	}
	return *out.IterationsCount, nil
}

func (r *ExecRunner) Measure(ctx context.Context, m Measurement, iterations int) (Result, error) {
	args := []string{"--subtask", SubtaskMeasure, "--iterations", strconv.Itoa(iterations)}
	args = append(args, r.ExtraArgs...)
	args = append(args, m.Benchmark)
	args = append(args, m.ParamArgs()...)

	var out Result
	if err := r.invoke(ctx, SubtaskMeasure, args, &out); err != nil {
		return Result{}, err
	}
	return out, nil
}

func (r *ExecRunner) SingleShot(ctx context.Context, m Measurement) (Result, error) {
	args := []string{"-j", "-c1", "-b", m.Benchmark}
	if len(m.Params) > 0 {
		args = append(args, "--params")
		args = append(args, m.ParamArgs()...)
	}

	var out Result
	if err := r.invoke(ctx, SubtaskSingleShot, args, &out); err != nil {
		return Result{}, err
	}
	return out, nil
}

func (r *ExecRunner) command(args []string) []string {
	return append([]string{r.Path}, args...)
}

func (r *ExecRunner) invoke(ctx context.Context, subtask string, args []string, out any) (err error) {
	start := time.Now()
	defer func() {
		if r.Observer != nil {
			r.Observer.ObserveInvocation(subtask, time.Since(start), err)
		}
	}()

	slog.Debug("Invoking benchmark executable", "path", r.Path, "args", args)

	cmd := execCommand(ctx, r.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		ierr := &InvocationError{
			Command:  r.command(args),
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      runErr,
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			ierr.ExitCode = exitErr.ExitCode()
		}
		slog.Error("Benchmark executable failed", "path", r.Path, "subtask", subtask, "exit_code", ierr.ExitCode)
		return ierr
	}

	if decErr := json.Unmarshal(stdout.Bytes(), out); decErr != nil {
		return &DecodeError{Command: r.command(args), Output: stdout.String(), Err: decErr}
	}
	return nil
}
