package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mvp-joe/bytemetrics/internal/history"
	"github.com/mvp-joe/bytemetrics/internal/report"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historyJSON    bool
	historyClasses bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved analysis runs",
	Long: `Runs are saved by 'bytemetrics analyze --save' or when history.enabled
is set in .bytemetrics/config.yml. IDs may be shortened to any unique prefix.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			return listRuns(cmd.Context(), cmd.OutOrStdout(), store, historyLimit, historyJSON, time.Now())
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			return showRun(cmd.Context(), cmd.OutOrStdout(), store, args[0], historyJSON, historyClasses)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			ctx := cmd.Context()
			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(ctx, run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", shortID(run.ID))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyShowCmd.Flags().BoolVar(&historyClasses, "classes", false, "Include the per-class table")
}

func withHistory(fn func(store *history.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func listRuns(ctx context.Context, out io.Writer, store *history.Store, limit int, asJSON bool, now time.Time) error {
	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No saved runs")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tCLASSES\tABC\tAVG DEPTH\tAVG OVERRIDES\tSOURCE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\n",
			shortID(run.ID),
			report.FormatTimeSince(run.StartedAt, now),
			report.FormatNumber(run.Analyzed),
			run.Summary.Magnitude,
			run.Summary.AverageDepth,
			run.Summary.AverageOverrideCount,
			run.Source,
		)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, out io.Writer, store *history.Store, id string, asJSON, classes bool) error {
	run, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	r := run.Report()
	if asJSON {
		return report.WriteJSON(out, r)
	}
	fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.StartedAt.Local().Format(time.RFC3339))
	return report.WriteHuman(out, r, report.Options{Classes: classes})
}
