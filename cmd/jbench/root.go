package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"jbench/internal/ci"
	"jbench/internal/config"
	"jbench/internal/metrics"
	"jbench/internal/telemetry"
	"jbench/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var exit = os.Exit
var cfgFile string

// cmdMetrics is created per command run in setup.
var cmdMetrics *metrics.Metrics

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jbench",
	Short: "Benchmark regression checks and report templates",
	Long: `jbench drives a joint-benchmarks executable.

  jbench ci        compares a candidate build against a reference build
  jbench template  fills a report template with live measurements
  jbench history   lists comparator runs recorded with --history-dsn`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"debug":          "debug",
	"no-color":       "no_color",
	"metrics-file":   "metrics_file",
	"num-passes":     "ci.num_passes",
	"single-shot":    "ci.single_shot",
	"notify":         "notifications.slack.enabled",
	"count":          "template.count",
	"verbosity":      "template.verbosity",
	"history-driver": "history.driver",
	"history-dsn":    "history.dsn",
	"limit":          "history.limit",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if werr := cmdMetrics.WriteTextfile(viper.GetString("metrics_file")); werr != nil {
		telemetry.LogError("Failed to write metrics file", werr, "path", viper.GetString("metrics_file"))
	}
	if err != nil {
		// The report already ends with the error count.
		if !errors.Is(err, ci.ErrRegressions) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jbench.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics to this file when the command finishes")
}

// setup loads the configuration, applies flag overrides and initializes
// logging, colors and metrics for the command about to run.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Load(cfgFile); err != nil {
		return err
	}
	if err := bindFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := config.ValidateConfig(); err != nil {
		return err
	}

	telemetry.InitLogger(viper.GetBool("debug"), viper.GetString("log_file"))
	ui.ConfigureColor(cmd.OutOrStdout(), !viper.GetBool("no_color"))
	cmdMetrics = metrics.NewMetrics()
	return nil
}

// bindFlags binds every known flag of fs to its config key. Flags left at
// their default do not shadow values from the environment or config file.
func bindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := viper.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag --%s: %w", f.Name, bindErr)
		}
	})
	return err
}
