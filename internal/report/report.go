// Package report renders analysis results for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
)

// Options controls human output.
type Options struct {
	// Classes adds the per-class table.
	Classes bool
}

// WriteHuman prints the five headline metrics and, optionally, the
// per-class table.
func WriteHuman(w io.Writer, r *analyzer.Report, opts Options) error {
	s := r.Summary

	fmt.Fprintf(w, "%s\n", r.Source)
	fmt.Fprintf(w, "  Classes analyzed:       %s\n", FormatNumber(r.Analyzed))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "  Entries skipped:        %s\n", FormatNumber(len(r.Skipped)))
	}
	fmt.Fprintf(w, "  ABC magnitude:          %.2f (A=%d B=%d C=%d)\n",
		s.Magnitude, s.ABC.Assignments, s.ABC.Branches, s.ABC.Conditions)
	fmt.Fprintf(w, "  Average field count:    %.2f\n", s.AverageFieldCount)
	fmt.Fprintf(w, "  Average depth:          %.2f\n", s.AverageDepth)
	fmt.Fprintf(w, "  Max depth:              %d\n", s.MaxDepth)
	fmt.Fprintf(w, "  Average override count: %.2f\n", s.AverageOverrideCount)
	fmt.Fprintf(w, "  Took:                   %s\n", FormatDuration(time.Duration(r.DurationMS)*time.Millisecond))

	if len(r.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped:")
		for _, sk := range r.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", sk.Entry, sk.Reason)
		}
	}

	if opts.Classes && len(s.Classes) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CLASS\tFIELDS\tDEPTH\tOVERRIDES")
		for _, c := range s.Classes {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c.Name, c.Fields, c.Depth, c.Overrides)
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("failed to write class table: %w", err)
		}
	}
	return nil
}

// WriteJSON encodes the report as indented JSON.
func WriteJSON(w io.Writer, r *analyzer.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// FormatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if n < 1000 {
		return str
	}

	var result []byte
	for i := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}

// FormatDuration formats a duration in compact format.
// Examples: "120ms", "5s", "1m 5s", "1h 30m"
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	seconds := int(d.Seconds())
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && secs > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatTimeSince formats a timestamp as time ago.
// Examples: "5m ago", "2h ago", "3d ago"
func FormatTimeSince(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	since := now.Sub(t)

	days := int(since.Hours() / 24)
	hours := int(since.Hours()) % 24
	minutes := int(since.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh ago", days, hours)
		}
		return fmt.Sprintf("%dd ago", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm ago", hours, minutes)
		}
		return fmt.Sprintf("%dh ago", hours)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	return fmt.Sprintf("%ds ago", int(since.Seconds()))
}
