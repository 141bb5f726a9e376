package metrics

import "github.com/mvp-joe/bytemetrics/internal/classfile"

// FieldCount records the number of declared fields per class.
type FieldCount struct {
	current string
	count   int
	counts  map[string]int
}

func NewFieldCount() *FieldCount {
	return &FieldCount{counts: make(map[string]int)}
}

// Handle implements Listener.
func (f *FieldCount) Handle(ev classfile.Event) {
	switch ev.Kind {
	case classfile.EventClassStart:
		f.OnClassStart(ev.Class)
	case classfile.EventFieldDeclared:
		f.OnFieldDeclared()
	case classfile.EventClassEnd:
		f.OnClassEnd()
	}
}

func (f *FieldCount) OnClassStart(name string) {
	f.current = name
	f.count = 0
}

func (f *FieldCount) OnFieldDeclared() { f.count++ }

// OnClassEnd records the count for the current class. A class seen twice
// keeps the last count.
func (f *FieldCount) OnClassEnd() {
	f.counts[f.current] = f.count
	f.current = ""
	f.count = 0
}

// AverageFieldCount is the mean over all recorded classes, 0 when none.
func (f *FieldCount) AverageFieldCount() float64 {
	return Average(f.counts)
}

// FieldCounts returns a copy of the per-class counts.
func (f *FieldCount) FieldCounts() map[string]int {
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}
