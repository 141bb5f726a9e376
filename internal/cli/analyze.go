package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/config"
	"github.com/mvp-joe/bytemetrics/internal/history"
	"github.com/mvp-joe/bytemetrics/internal/report"
	"github.com/mvp-joe/bytemetrics/internal/resolver"
	"github.com/mvp-joe/bytemetrics/internal/watcher"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	json      bool
	classes   bool
	quiet     bool
	watch     bool
	save      bool
	classpath []string
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze <archive>",
	Short: "Compute class metrics for a jar, jmod, or class directory",
	Long: `Analyze decodes every class file in the input and reports:

  - ABC complexity magnitude (assignments, branches, conditions)
  - average field count
  - average and maximum inheritance depth
  - average override count

Superclasses outside the input are resolved lazily from the classpath.

Examples:
  # Analyze a jar
  bytemetrics analyze build/libs/app.jar

  # Resolve framework ancestors and list per-class rows
  bytemetrics analyze app.jar --classpath lib/* --classpath $JAVA_HOME --classes

  # Machine-readable output
  bytemetrics analyze target/classes --json

  # Re-analyze whenever the jar is rebuilt
  bytemetrics analyze app.jar --watch
`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeOpts.json, "json", false, "Print the report as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.classes, "classes", false, "Include the per-class table")
	analyzeCmd.Flags().BoolVarP(&analyzeOpts.quiet, "quiet", "q", false, "Disable progress bars")
	analyzeCmd.Flags().BoolVarP(&analyzeOpts.watch, "watch", "w", false, "Re-analyze when the input changes")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.save, "save", false, "Save the run to the history database")
	analyzeCmd.Flags().StringArrayVar(&analyzeOpts.classpath, "classpath", nil, "Directory, archive, dir/*, or JDK home used to resolve ancestors (repeatable)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzeOpts.save {
		cfg.History.Enabled = true
	}

	cp, err := cfg.OpenClasspath(analyzeOpts.classpath)
	if err != nil {
		return fmt.Errorf("failed to open classpath: %w", err)
	}
	defer cp.Close()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if analyzeOpts.watch {
		return watchTarget(ctx, out, errOut, cfg, cp, args[0], analyzeOpts)
	}
	_, err = analyzeOnce(ctx, out, errOut, cfg, cp, args[0], analyzeOpts)
	return err
}

// analyzeOnce runs one analysis, prints it to out, and records it when
// history is enabled. Progress goes to errOut. cp is owned by the caller.
func analyzeOnce(ctx context.Context, out, errOut io.Writer, cfg *config.Config, cp *resolver.Classpath, path string, opts analyzeOptions) (*analyzer.Report, error) {
	filter, err := cfg.Filter()
	if err != nil {
		return nil, err
	}

	var progress analyzer.ProgressReporter = &analyzer.NoOpProgressReporter{}
	if !opts.quiet && !opts.json {
		progress = NewCLIProgressReporter(errOut)
	}

	r, err := analyzer.Analyze(ctx, analyzer.Config{
		Path:     path,
		Filter:   filter,
		Resolver: cp,
		Options:  cfg.MetricsOptions(),
	}, progress)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("analysis cancelled")
		}
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.History.Enabled {
		id, err := saveRun(ctx, cfg, r)
		if err != nil {
			log.Printf("Warning: failed to save run: %v\n", err)
		} else if !opts.quiet && !opts.json {
			fmt.Fprintf(errOut, "Saved run %s\n", shortID(id))
		}
	}

	if opts.json {
		return r, report.WriteJSON(out, r)
	}
	return r, report.WriteHuman(out, r, report.Options{Classes: opts.classes})
}

func saveRun(ctx context.Context, cfg *config.Config, r *analyzer.Report) (string, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return "", err
	}
	store, err := history.Open(path)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Save(ctx, r)
}

// watchTarget analyzes path, then again after every debounced change until
// ctx is cancelled. Failed re-runs are logged and do not stop watching.
// Every run shares cp, so classpath ancestors are read from disk once.
func watchTarget(ctx context.Context, out, errOut io.Writer, cfg *config.Config, cp *resolver.Classpath, path string, opts analyzeOptions) error {
	if _, err := analyzeOnce(ctx, out, errOut, cfg, cp, path, opts); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("Warning: %v\n", err)
	}

	w, err := watcher.New(path)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	defer w.Stop()

	err = w.Start(ctx, func(changed []string) {
		if !opts.quiet && !opts.json {
			fmt.Fprintf(errOut, "\n%d change(s) detected, re-analyzing...\n", len(changed))
		}
		if _, err := analyzeOnce(ctx, out, errOut, cfg, cp, path, opts); err != nil && ctx.Err() == nil {
			log.Printf("Warning: %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	if !opts.quiet && !opts.json {
		fmt.Fprintf(errOut, "Watching %s for changes (Ctrl+C to stop)...\n", w.Target())
	}
	<-ctx.Done()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
