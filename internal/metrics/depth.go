package metrics

import (
	"sort"

	"github.com/mvp-joe/bytemetrics/internal/classfile"
)

// InheritanceDepth tracks how far each declared class sits below a base type.
//
// Classes may arrive in any order. A class whose superclass depth is known
// gets a depth immediately and pushes it down to its already-declared
// descendants. The rest wait in the forest until their ancestor shows up or
// until FinalizeAll roots the remaining chains.
type InheritanceDepth struct {
	base     map[string]bool
	depth    map[string]int
	parent   map[string]string
	children map[string][]string
	declared map[string]struct{}
}

// NewInheritanceDepth seeds the given base types at depth 0. A nil slice
// uses DefaultBaseTypes.
func NewInheritanceDepth(baseTypes []string) *InheritanceDepth {
	if baseTypes == nil {
		baseTypes = DefaultBaseTypes
	}
	d := &InheritanceDepth{
		base:     make(map[string]bool, len(baseTypes)),
		depth:    make(map[string]int),
		parent:   make(map[string]string),
		children: make(map[string][]string),
		declared: make(map[string]struct{}),
	}
	for _, name := range baseTypes {
		name = classfile.InternalName(name)
		d.base[name] = true
		d.depth[name] = 0
	}
	return d
}

// Handle implements Listener.
func (d *InheritanceDepth) Handle(ev classfile.Event) {
	if ev.Kind == classfile.EventClassStart {
		d.OnClassDeclared(ev.Class, ev.Super)
	}
}

// OnClassDeclared records name as a subclass of super. An empty super marks
// a root.
func (d *InheritanceDepth) OnClassDeclared(name, super string) {
	d.declared[name] = struct{}{}

	if prev, ok := d.parent[name]; ok && prev != super {
		d.children[prev] = remove(d.children[prev], name)
	}
	d.parent[name] = super
	if super != "" && !contains(d.children[super], name) {
		d.children[super] = append(d.children[super], name)
	}

	if d.base[name] {
		d.propagate(name)
		return
	}

	want, known := 0, super == ""
	if !known {
		var sd int
		sd, known = d.depth[super]
		want = sd + 1
	}

	old, had := d.depth[name]
	switch {
	case known && (!had || old != want):
		d.depth[name] = want
		d.propagate(name)
	case !known && had:
		// Moved under an ancestor with no depth yet.
		d.invalidate(name)
	}
}

// propagate pushes root's depth down through the forest. Every descendant
// is rewritten, even when its value does not change.
func (d *InheritanceDepth) propagate(root string) {
	visited := map[string]bool{root: true}
	stack := []string{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := d.depth[n]
		for _, child := range d.children[n] {
			if visited[child] || d.base[child] {
				continue
			}
			visited[child] = true
			d.depth[child] = nd + 1
			stack = append(stack, child)
		}
	}
}

// invalidate drops the depth of root and its descendants.
func (d *InheritanceDepth) invalidate(root string) {
	visited := map[string]bool{root: true}
	stack := []string{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		delete(d.depth, n)
		for _, child := range d.children[n] {
			if visited[child] || d.base[child] {
				continue
			}
			visited[child] = true
			stack = append(stack, child)
		}
	}
}

// FinalizeAll gives every declared class a depth. For each chain that never
// reached a known ancestor, the top-most declared class is rooted at 0 and
// its descendants follow from there.
func (d *InheritanceDepth) FinalizeAll() {
	names := make([]string, 0, len(d.declared))
	for name := range d.declared {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := d.depth[name]; ok {
			continue
		}
		top := name
		seen := map[string]bool{name: true}
		for {
			p := d.parent[top]
			if p == "" || seen[p] {
				break
			}
			if _, ok := d.declared[p]; !ok {
				break
			}
			if _, ok := d.depth[p]; ok {
				break
			}
			seen[p] = true
			top = p
		}
		if p := d.parent[top]; p != "" {
			if pd, ok := d.depth[p]; ok {
				d.depth[top] = pd + 1
				d.propagate(top)
				continue
			}
		}
		d.depth[top] = 0
		d.propagate(top)
	}
}

// DepthOf returns the depth of name and whether it is known.
func (d *InheritanceDepth) DepthOf(name string) (int, bool) {
	n, ok := d.depth[name]
	return n, ok
}

// AverageDepth is the mean depth over declared classes with a known depth.
func (d *InheritanceDepth) AverageDepth() float64 {
	total, n := 0, 0
	for name := range d.declared {
		if v, ok := d.depth[name]; ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// MaxDepth is the largest depth among declared classes, 0 when none.
func (d *InheritanceDepth) MaxDepth() int {
	deepest := 0
	for name := range d.declared {
		if v, ok := d.depth[name]; ok && v > deepest {
			deepest = v
		}
	}
	return deepest
}

// Depths returns the known depths of declared classes.
func (d *InheritanceDepth) Depths() map[string]int {
	out := make(map[string]int, len(d.declared))
	for name := range d.declared {
		if v, ok := d.depth[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Parents returns the superclass of every declared class ("" for roots).
func (d *InheritanceDepth) Parents() map[string]string {
	out := make(map[string]string, len(d.parent))
	for k, v := range d.parent {
		out[k] = v
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
