package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jbench/internal/benchmark"
	"jbench/internal/ci"
	"jbench/internal/db"
	"jbench/internal/manifest"
	"jbench/internal/notify"
	"jbench/internal/telemetry"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRunner builds the runner for a benchmark executable.
// It's a variable so it can be replaced in tests.
var newRunner = func(path string, observer benchmark.Observer, extraArgs ...string) benchmark.Runner {
	r := benchmark.NewExecRunner(path, extraArgs...)
	r.Observer = observer
	return r
}

// newNotifier is a variable so it can be replaced in tests.
var newNotifier = func() (notify.Notifier, error) {
	return notify.FromConfig()
}

func NewCICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Compare a benchmark executable against a reference build",
		Long: `Runs every benchmark of the manifest on both executables and classifies
the current/reference timing ratio:

  FASTER           ratio < 0.80
  OK               ratio < 1.10
  SLIGHTLY SLOWER  ratio < 1.25
  SLOWER           otherwise

The command fails if any benchmark is SLOWER or could not be measured.`,
		Args: cobra.NoArgs,
		RunE: runCI,
	}

	cmd.Flags().String("executable", "", "Path to the benchmark executable under test")
	cmd.Flags().String("reference-executable", "", "Path to the reference benchmark executable")
	cmd.Flags().String("benchmarks", "", "Benchmark manifest (JSON or YAML) mapping languages to benchmark ids")
	cmd.Flags().Int("num-passes", 1, "Number of measurements per executable and benchmark")
	cmd.Flags().Bool("single-shot", false, "Measure with a single -j -c1 invocation instead of calibrate and measure")
	cmd.Flags().String("history-driver", "sqlite", "History store driver (sqlite, postgres)")
	cmd.Flags().String("history-dsn", "", "Record the run in this history store (SQLite path or Postgres DSN)")
	cmd.Flags().Bool("notify", false, "Post a summary to Slack")

	_ = cmd.MarkFlagRequired("executable")
	_ = cmd.MarkFlagRequired("reference-executable")
	_ = cmd.MarkFlagRequired("benchmarks")

	return cmd
}

var ciCmd = NewCICmd()

func init() {
	rootCmd.AddCommand(ciCmd)
}

func runCI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	executable, _ := cmd.Flags().GetString("executable")
	reference, _ := cmd.Flags().GetString("reference-executable")
	manifestPath, _ := cmd.Flags().GetString("benchmarks")

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	run := db.Run{
		ID:                  uuid.NewString(),
		StartedAt:           time.Now(),
		Executable:          executable,
		ReferenceExecutable: reference,
		Passes:              viper.GetInt("ci.num_passes"),
	}
	slog.Debug("Starting comparator run", "run_id", run.ID, "benchmarks", m.Total(), "passes", run.Passes)

	comparator := &ci.Comparator{
		Current:    newRunner(executable, cmdMetrics),
		Reference:  newRunner(reference, cmdMetrics),
		Passes:     run.Passes,
		SingleShot: viper.GetBool("ci.single_shot"),
		Progress:   cmd.ErrOrStderr(),
	}
	results := comparator.Run(ctx, m)
	summary := ci.Report(cmd.OutOrStdout(), results, cmdMetrics)

	if cmd.Flags().Changed("history-dsn") || cmd.Flags().Changed("history-driver") || viper.GetString("history.dsn") != "" {
		if err := recordRun(ctx, run, summary); err != nil {
			telemetry.LogError("Failed to record comparator run", err, "run_id", run.ID)
		}
	}

	if viper.GetBool("notifications.slack.enabled") {
		if err := sendSummary(ctx, summary); err != nil {
			telemetry.LogError("Failed to send summary notification", err)
		}
	}

	return summary.Err()
}

func recordRun(ctx context.Context, run db.Run, summary *ci.Summary) error {
	store, err := newStore(db.StoreConfig{
		Type:             viper.GetString("history.driver"),
		ConnectionString: viper.GetString("history.dsn"),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	run.Errors = summary.Errors
	run.MinRatio = summary.MinRatio
	run.MaxRatio = summary.MaxRatio
	for _, row := range summary.Rows {
		e := db.Entry{
			Language:    row.Language,
			BenchmarkID: row.BenchmarkID,
			Bucket:      row.Bucket,
		}
		if row.Failed() {
			e.Error = row.Err.Error()
		} else {
			e.Current, e.Reference, e.Ratio = row.Current, row.Reference, row.Ratio
		}
		run.Entries = append(run.Entries, e)
	}

	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	slog.Info("Recorded comparator run", "run_id", run.ID, "entries", len(run.Entries))
	return nil
}

func sendSummary(ctx context.Context, summary *ci.Summary) error {
	n, err := newNotifier()
	if err != nil {
		return err
	}
	if err := n.Notify(ctx, summary.Message()); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
