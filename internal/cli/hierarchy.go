package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/classfile"
	"github.com/mvp-joe/bytemetrics/internal/config"
	"github.com/mvp-joe/bytemetrics/internal/hierarchy"
	"github.com/mvp-joe/bytemetrics/internal/resolver"
	"github.com/spf13/cobra"
)

type hierarchyOptions struct {
	output    string
	class     string
	classpath []string
}

var hierarchyOpts hierarchyOptions

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <archive>",
	Short: "Export or query the inheritance hierarchy of a batch",
	Long: `Hierarchy analyzes the input and renders its superclass links as a
Graphviz DOT graph, each class labeled with its inheritance depth.
Superclasses outside the batch are drawn dashed.

With --class, prints the ancestors and subclasses of one class instead.

Examples:
  bytemetrics hierarchy app.jar --output app.dot && dot -Tsvg app.dot > app.svg
  bytemetrics hierarchy app.jar --class com.acme.Service
`,
	Args: cobra.ExactArgs(1),
	RunE: runHierarchy,
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
	hierarchyCmd.Flags().StringVarP(&hierarchyOpts.output, "output", "o", "", "Write DOT to this file instead of stdout")
	hierarchyCmd.Flags().StringVar(&hierarchyOpts.class, "class", "", "Show ancestors and subclasses of this class")
	hierarchyCmd.Flags().StringArrayVar(&hierarchyOpts.classpath, "classpath", nil, "Directory, archive, dir/*, or JDK home used to resolve ancestors (repeatable)")
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cp, err := cfg.OpenClasspath(hierarchyOpts.classpath)
	if err != nil {
		return fmt.Errorf("failed to open classpath: %w", err)
	}
	defer cp.Close()

	return writeHierarchy(ctx, cmd.OutOrStdout(), cfg, cp, args[0], hierarchyOpts)
}

func writeHierarchy(ctx context.Context, out io.Writer, cfg *config.Config, cp *resolver.Classpath, path string, opts hierarchyOptions) error {
	filter, err := cfg.Filter()
	if err != nil {
		return err
	}

	r, err := analyzer.Analyze(ctx, analyzer.Config{
		Path:     path,
		Filter:   filter,
		Resolver: cp,
		Options:  cfg.MetricsOptions(),
	}, nil)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	h, err := hierarchy.FromReport(r)
	if err != nil {
		return err
	}

	if opts.class != "" {
		return describeClass(out, h, r, classfile.InternalName(opts.class))
	}

	if opts.output == "" {
		return h.WriteDOT(out)
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.output, err)
	}
	if err := h.WriteDOT(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}
	fmt.Fprintf(out, "✓ Wrote %d classes to %s\n", h.Order(), opts.output)
	return nil
}

func describeClass(out io.Writer, h *hierarchy.Hierarchy, r *analyzer.Report, name string) error {
	ancestors, err := h.Ancestors(name)
	if err != nil {
		return err
	}
	subclasses, err := h.Subclasses(name)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, name)
	if h.IsExternal(name) {
		fmt.Fprintln(out, "  (outside the batch)")
	} else {
		for _, c := range r.Summary.Classes {
			if c.Name == name {
				fmt.Fprintf(out, "  Depth:      %d\n", c.Depth)
				break
			}
		}
	}
	fmt.Fprintf(out, "  Ancestors:  %s\n", joinOrNone(ancestors, " → "))
	fmt.Fprintf(out, "  Subclasses: %s\n", joinOrNone(subclasses, ", "))
	return nil
}

func joinOrNone(list []string, sep string) string {
	if len(list) == 0 {
		return "(none)"
	}
	return strings.Join(list, sep)
}
