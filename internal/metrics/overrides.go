package metrics

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mvp-joe/bytemetrics/internal/classfile"
)

// ClassRecord is the override-relevant shape of a class. Records are
// immutable once published; a re-declaration replaces the whole record.
type ClassRecord struct {
	Methods    map[classfile.MethodSignature]struct{}
	Super      string
	Interfaces []string
	// External marks records obtained from the resolver rather than the batch.
	External bool
}

// OverrideCount counts, per batch class, the methods it declares that some
// ancestor (superclass or interface, transitively) also declares.
//
// Ancestors outside the batch are looked up through the ClassResolver the
// first time a query needs them. Each name is resolved at most once, and a
// failed lookup is remembered as a class with no methods.
type OverrideCount struct {
	resolver ClassResolver

	// building holds records between ClassStart and ClassEnd. It is only
	// touched by the goroutine feeding events.
	building map[string]*ClassRecord

	mu      sync.RWMutex
	records map[string]*ClassRecord
	missing map[string]struct{}
	batch   map[string]struct{}

	group singleflight.Group
}

// NewOverrideCount creates a resolver-backed accumulator. A nil resolver
// treats every external ancestor as not found.
func NewOverrideCount(resolver ClassResolver) *OverrideCount {
	return &OverrideCount{
		resolver: resolver,
		building: make(map[string]*ClassRecord),
		records:  make(map[string]*ClassRecord),
		missing:  make(map[string]struct{}),
		batch:    make(map[string]struct{}),
	}
}

// Handle implements Listener.
func (o *OverrideCount) Handle(ev classfile.Event) {
	switch ev.Kind {
	case classfile.EventClassStart:
		o.OnClassDeclared(ev.Class, ev.Super, ev.Interfaces)
	case classfile.EventMethodStart:
		o.OnMethodDeclared(ev.Class, ev.Method, ev.Flags.Static, ev.Flags.Private, ev.Flags.ConstructorLike)
	case classfile.EventClassEnd:
		o.OnClassEnd(ev.Class)
	}
}

// OnClassDeclared opens the construction window for name.
func (o *OverrideCount) OnClassDeclared(name, super string, interfaces []string) {
	o.building[name] = &ClassRecord{
		Methods:    make(map[classfile.MethodSignature]struct{}),
		Super:      super,
		Interfaces: append([]string(nil), interfaces...),
	}
}

// OnMethodDeclared adds sig to the class being built. Static, private, and
// constructor-like methods cannot override and are ignored.
func (o *OverrideCount) OnMethodDeclared(name string, sig classfile.MethodSignature, isStatic, isPrivate, isConstructorLike bool) {
	if isStatic || isPrivate || isConstructorLike {
		return
	}
	if rec, ok := o.building[name]; ok {
		rec.Methods[sig] = struct{}{}
	}
}

// OnClassEnd publishes the record for name, replacing any earlier one.
func (o *OverrideCount) OnClassEnd(name string) {
	rec, ok := o.building[name]
	if !ok {
		return
	}
	delete(o.building, name)

	o.mu.Lock()
	o.records[name] = rec
	o.batch[name] = struct{}{}
	o.mu.Unlock()
}

// OverrideCountOf returns how many of name's own methods are declared by at
// least one ancestor. Each method counts once no matter how many ancestors
// declare it. Unknown classes yield 0.
func (o *OverrideCount) OverrideCountOf(name string) int {
	rec := o.record(name)
	if rec == nil || len(rec.Methods) == 0 {
		return 0
	}

	working := make(map[classfile.MethodSignature]struct{}, len(rec.Methods))
	for sig := range rec.Methods {
		working[sig] = struct{}{}
	}

	visited := map[string]bool{classfile.InternalName(name): true}
	queue := appendAncestors(nil, rec)
	count := 0

	for len(queue) > 0 && len(working) > 0 {
		next := classfile.InternalName(queue[0])
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true

		anc := o.record(next)
		if anc == nil {
			continue
		}
		queue = appendAncestors(queue, anc)

		for sig := range working {
			if _, ok := anc.Methods[sig]; ok {
				delete(working, sig)
				count++
			}
		}
	}
	return count
}

func appendAncestors(queue []string, rec *ClassRecord) []string {
	if rec.Super != "" {
		queue = append(queue, rec.Super)
	}
	return append(queue, rec.Interfaces...)
}

// record returns the published record for name, resolving it externally if
// the batch never declared it. Nil means no methods are known.
func (o *OverrideCount) record(name string) *ClassRecord {
	key := classfile.InternalName(name)

	o.mu.RLock()
	rec, ok := o.records[key]
	_, miss := o.missing[key]
	o.mu.RUnlock()
	if ok {
		return rec
	}
	if miss {
		return nil
	}
	return o.resolveAncestor(key)
}

// resolveAncestor looks key up through the resolver and registers what it
// finds. Concurrent callers for the same key share one lookup.
func (o *OverrideCount) resolveAncestor(key string) *ClassRecord {
	v, _, _ := o.group.Do(key, func() (interface{}, error) {
		o.mu.RLock()
		rec, ok := o.records[key]
		_, miss := o.missing[key]
		o.mu.RUnlock()
		if ok {
			return rec, nil
		}
		if miss {
			return (*ClassRecord)(nil), nil
		}

		rec = o.lookup(key)

		o.mu.Lock()
		defer o.mu.Unlock()
		if rec == nil {
			o.missing[key] = struct{}{}
			return rec, nil
		}
		if existing, ok := o.records[key]; ok {
			return existing, nil
		}
		o.records[key] = rec
		return rec, nil
	})
	return v.(*ClassRecord)
}

// lookup fetches and structurally decodes an external class.
func (o *OverrideCount) lookup(key string) *ClassRecord {
	if o.resolver == nil {
		return nil
	}
	data, err := o.resolver.Resolve(key)
	if err != nil || len(data) == 0 {
		return nil
	}
	events, err := classfile.DecodeStructure(data)
	if err != nil {
		log.Printf("Warning: failed to decode external class %s: %v\n", key, err)
		return nil
	}

	rec := &ClassRecord{
		Methods:  make(map[classfile.MethodSignature]struct{}),
		External: true,
	}
	for _, ev := range events {
		switch ev.Kind {
		case classfile.EventClassStart:
			rec.Super = ev.Super
			rec.Interfaces = ev.Interfaces
		case classfile.EventMethodStart:
			if ev.Flags.Static || ev.Flags.Private || ev.Flags.ConstructorLike {
				continue
			}
			rec.Methods[ev.Method] = struct{}{}
		}
	}
	return rec
}

// BatchClasses returns the classes declared by the batch, sorted.
func (o *OverrideCount) BatchClasses() []string {
	o.mu.RLock()
	names := make([]string, 0, len(o.batch))
	for name := range o.batch {
		names = append(names, name)
	}
	o.mu.RUnlock()
	sort.Strings(names)
	return names
}

// AverageOverrideCount is the mean OverrideCountOf over batch classes, 0
// when the batch is empty.
func (o *OverrideCount) AverageOverrideCount() float64 {
	names := o.BatchClasses()
	if len(names) == 0 {
		return 0
	}
	total := 0
	for _, name := range names {
		total += o.OverrideCountOf(name)
	}
	return float64(total) / float64(len(names))
}

// OverrideCounts computes OverrideCountOf for every batch class using up to
// workers goroutines.
func (o *OverrideCount) OverrideCounts(ctx context.Context, workers int) (map[string]int, error) {
	names := o.BatchClasses()
	counts := make([]int, len(names))

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			counts[i] = o.OverrideCountOf(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(names))
	for i, name := range names {
		out[name] = counts[i]
	}
	return out, nil
}

// Average returns the mean of counts, 0 when empty.
func Average(counts map[string]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return float64(total) / float64(len(counts))
}
