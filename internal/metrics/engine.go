package metrics

import (
	"context"
	"fmt"
	"sort"

	"github.com/mvp-joe/bytemetrics/internal/classfile"
)

// Options tunes the accumulators.
type Options struct {
	// BaseTypes are seeded at depth 0. Nil uses DefaultBaseTypes.
	BaseTypes []string
	// CountUnconditionalJumps counts goto/jsr as ABC branches.
	CountUnconditionalJumps bool
	// Workers bounds the override-count worker pool.
	Workers int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BaseTypes:               DefaultBaseTypes,
		CountUnconditionalJumps: true,
		Workers:                 4,
	}
}

// Engine fans a batch's event stream out to the four accumulators and reads
// them back as a Summary.
type Engine struct {
	opts Options

	abc       *InstructionSize
	fields    *FieldCount
	depth     *InheritanceDepth
	overrides *OverrideCount
	listeners []Listener

	finalized bool
}

// NewEngine creates an engine. resolver may be nil.
func NewEngine(resolver ClassResolver, opts Options) *Engine {
	e := &Engine{
		opts:      opts,
		abc:       NewInstructionSize(opts.CountUnconditionalJumps),
		fields:    NewFieldCount(),
		depth:     NewInheritanceDepth(opts.BaseTypes),
		overrides: NewOverrideCount(resolver),
	}
	e.listeners = []Listener{e.abc, e.fields, e.depth, e.overrides}
	return e
}

// Consume feeds one decoded class (or any event sequence) to every listener.
func (e *Engine) Consume(events []classfile.Event) {
	for _, ev := range events {
		for _, l := range e.listeners {
			l.Handle(ev)
		}
	}
}

// Finalize resolves depths for chains that never reached a base type. It is
// safe to call more than once.
func (e *Engine) Finalize() {
	e.depth.FinalizeAll()
	e.finalized = true
}

// Depth exposes the inheritance-depth accumulator.
func (e *Engine) Depth() *InheritanceDepth { return e.depth }

// Overrides exposes the override-count accumulator.
func (e *Engine) Overrides() *OverrideCount { return e.overrides }

// Summarize finalizes if needed and reads every metric.
func (e *Engine) Summarize(ctx context.Context) (*Summary, error) {
	if !e.finalized {
		e.Finalize()
	}

	overrides, err := e.overrides.OverrideCounts(ctx, e.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to count overrides: %w", err)
	}

	fields := e.fields.FieldCounts()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	classes := make([]ClassMetrics, 0, len(names))
	for _, name := range names {
		depth, _ := e.depth.DepthOf(name)
		classes = append(classes, ClassMetrics{
			Name:      name,
			Fields:    fields[name],
			Depth:     depth,
			Overrides: overrides[name],
		})
	}

	return &Summary{
		ABC:                  e.abc.Totals(),
		Magnitude:            e.abc.Magnitude(),
		AverageFieldCount:    e.fields.AverageFieldCount(),
		AverageDepth:         e.depth.AverageDepth(),
		MaxDepth:             e.depth.MaxDepth(),
		AverageOverrideCount: Average(overrides),
		Classes:              classes,
	}, nil
}
