// Package analyzer drives one analysis run: it enumerates a batch, decodes
// each class, feeds the metrics engine, and assembles the Report.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mvp-joe/bytemetrics/internal/archive"
	"github.com/mvp-joe/bytemetrics/internal/classfile"
	"github.com/mvp-joe/bytemetrics/internal/metrics"
)

// Config describes one run.
type Config struct {
	// Path is the archive or class directory to analyze.
	Path string
	// Filter selects entries; nil uses archive.DefaultFilter.
	Filter *archive.Filter
	// Resolver supplies ancestors outside the batch; may be nil.
	Resolver metrics.ClassResolver
	Options  metrics.Options
}

// Skipped records an entry that could not be decoded.
type Skipped struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
}

// Report is the result of one run.
type Report struct {
	Source     string           `json:"source"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMS int64            `json:"duration_ms"`
	Analyzed   int              `json:"classes_analyzed"`
	Skipped    []Skipped        `json:"skipped,omitempty"`
	Summary    *metrics.Summary `json:"metrics"`

	// Parents maps each analyzed class to its superclass.
	Parents map[string]string `json:"-"`
}

// Analyze runs the full pipeline over cfg.Path.
func Analyze(ctx context.Context, cfg Config, progress ProgressReporter) (*Report, error) {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	start := time.Now()

	src, err := archive.Open(cfg.Path, cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch: %w", err)
	}
	defer src.Close()
	progress.OnDiscoveryComplete(src.Path(), src.Count())

	engine := metrics.NewEngine(cfg.Resolver, cfg.Options)
	report := &Report{Source: src.Path(), StartedAt: start}

	err = src.Walk(ctx, func(entry archive.Entry) error {
		defer progress.OnClassProcessed(entry.Name)

		data, err := entry.Read()
		if err != nil {
			report.skip(entry.Name, err, progress)
			return nil
		}
		events, err := classfile.Decode(data)
		if err != nil {
			report.skip(entry.Name, err, progress)
			return nil
		}
		engine.Consume(events)
		report.Analyzed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", src.Path(), err)
	}

	engine.Finalize()
	progress.OnResolvingStart(report.Analyzed)

	summary, err := engine.Summarize(ctx)
	if err != nil {
		return nil, err
	}
	report.Summary = summary
	report.Parents = engine.Depth().Parents()

	duration := time.Since(start)
	report.DurationMS = duration.Milliseconds()
	progress.OnComplete(report, duration)
	return report, nil
}

func (r *Report) skip(name string, err error, progress ProgressReporter) {
	log.Printf("Warning: skipping %s: %v\n", name, err)
	r.Skipped = append(r.Skipped, Skipped{Entry: name, Reason: err.Error()})
	progress.OnSkipped(name, err)
}
