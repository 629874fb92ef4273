package main

import (
	"fmt"
	"text/tabwriter"

	"jbench/internal/db"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newStore is a factory function for the history store.
// It's a variable so it can be replaced in tests.
var newStore = db.NewStore

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded comparator runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().String("history-driver", "sqlite", "History store driver (sqlite, postgres)")
	cmd.Flags().String("history-dsn", "", "History store (SQLite path or Postgres DSN)")
	cmd.Flags().Int("limit", 10, "Number of runs to show")
	cmd.Flags().Bool("entries", false, "Also list the entries of each run")

	return cmd
}

var historyCmd = NewHistoryCmd()

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := newStore(db.StoreConfig{
		Type:             viper.GetString("history.driver"),
		ConnectionString: viper.GetString("history.dsn"),
	})
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), viper.GetInt("history.limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	showEntries, _ := cmd.Flags().GetBool("entries")
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tEXECUTABLE\tREFERENCE\tPASSES\tERRORS\tMIN\tMAX")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.2f\t%.2f\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Executable, r.ReferenceExecutable, r.Passes, r.Errors, r.MinRatio, r.MaxRatio)
		if !showEntries {
			continue
		}
		for _, e := range r.Entries {
			if e.Error != "" {
				fmt.Fprintf(w, "  %s(lang:%s)\t%s\t\t\t\t\t\t\n", e.BenchmarkID, e.Language, e.Bucket)
				continue
			}
			fmt.Fprintf(w, "  %s(lang:%s)\t%s\t%g\t%g\t\t\t%.2f\t\n",
				e.BenchmarkID, e.Language, e.Bucket, e.Reference, e.Current, e.Ratio)
		}
	}
	return w.Flush()
}
