package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/report"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements analyzer.ProgressReporter with a progress
// bar on w (stderr in normal use, so JSON on stdout stays clean).
type CLIProgressReporter struct {
	w         io.Writer
	classBar  *progressbar.ProgressBar
	total     int
	processed int
	skipped   int
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(w io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{w: w}
}

func (c *CLIProgressReporter) OnDiscoveryComplete(source string, totalClasses int) {
	c.total = totalClasses
	c.processed = 0
	c.skipped = 0
	fmt.Fprintf(c.w, "Analyzing %s class files in %s\n", report.FormatNumber(totalClasses), source)

	c.classBar = progressbar.NewOptions(totalClasses,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Decoding classes"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("classes/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.w)
		}),
	)
}

func (c *CLIProgressReporter) OnClassProcessed(entryName string) {
	if c.classBar != nil {
		c.processed++
		c.classBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnSkipped(entryName string, err error) {
	c.skipped++
}

func (c *CLIProgressReporter) OnResolvingStart(totalClasses int) {
	if c.classBar != nil {
		c.classBar.Finish()
		c.classBar = nil
	}
	fmt.Fprintf(c.w, "Resolving overrides for %s classes...\n", report.FormatNumber(totalClasses))
}

func (c *CLIProgressReporter) OnComplete(r *analyzer.Report, duration time.Duration) {
	fmt.Fprintf(c.w, "✓ Analysis complete: %s classes in %s",
		report.FormatNumber(r.Analyzed), report.FormatDuration(duration))
	if c.skipped > 0 {
		fmt.Fprintf(c.w, " (%s skipped)", report.FormatNumber(c.skipped))
	}
	fmt.Fprintln(c.w)
}
