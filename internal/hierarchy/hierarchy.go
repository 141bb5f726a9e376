// Package hierarchy turns the superclass links of an analyzed batch into a
// directed graph for querying and DOT export.
package hierarchy

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/mvp-joe/bytemetrics/internal/analyzer"
)

// Hierarchy is a directed graph with an edge from each class to its
// superclass. Superclasses outside the batch appear as external vertices.
type Hierarchy struct {
	g        graph.Graph[string, string]
	external map[string]bool
}

// Build creates the graph from child → superclass links. depths, when
// given, label batch classes with their inheritance depth.
func Build(parents map[string]string, depths map[string]int) (*Hierarchy, error) {
	h := &Hierarchy{
		g:        graph.New(graph.StringHash, graph.Directed()),
		external: make(map[string]bool),
	}

	names := make([]string, 0, len(parents))
	for name := range parents {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		label := name
		if d, ok := depths[name]; ok {
			label = fmt.Sprintf("%s (%d)", name, d)
		}
		if err := h.g.AddVertex(name, graph.VertexAttribute("label", label)); err != nil {
			return nil, fmt.Errorf("failed to add class %s: %w", name, err)
		}
	}

	for _, name := range names {
		super := parents[name]
		if super == "" {
			continue
		}
		if _, ok := parents[super]; !ok && !h.external[super] {
			h.external[super] = true
			err := h.g.AddVertex(super,
				graph.VertexAttribute("label", super),
				graph.VertexAttribute("style", "dashed"),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to add external class %s: %w", super, err)
			}
		}
		if err := h.g.AddEdge(name, super); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to link %s to %s: %w", name, super, err)
		}
	}
	return h, nil
}

// FromReport builds the hierarchy of an analysis run, labeling each class
// with its reported depth.
func FromReport(r *analyzer.Report) (*Hierarchy, error) {
	depths := make(map[string]int)
	if r.Summary != nil {
		for _, c := range r.Summary.Classes {
			depths[c.Name] = c.Depth
		}
	}
	return Build(r.Parents, depths)
}

// Order returns the number of classes, external ones included.
func (h *Hierarchy) Order() int {
	n, _ := h.g.Order()
	return n
}

// IsExternal reports whether name only appears as a superclass.
func (h *Hierarchy) IsExternal(name string) bool {
	return h.external[name]
}

// Ancestors returns the superclass chain of name, nearest first.
func (h *Hierarchy) Ancestors(name string) ([]string, error) {
	if _, err := h.g.Vertex(name); err != nil {
		return nil, fmt.Errorf("unknown class %s: %w", name, err)
	}
	var chain []string
	err := graph.DFS(h.g, name, func(v string) bool {
		if v != name {
			chain = append(chain, v)
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk ancestors of %s: %w", name, err)
	}
	return chain, nil
}

// Subclasses returns every class below name, sorted.
func (h *Hierarchy) Subclasses(name string) ([]string, error) {
	preds, err := h.g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	if _, ok := preds[name]; !ok {
		return nil, fmt.Errorf("unknown class %s: %w", name, graph.ErrVertexNotFound)
	}

	var out []string
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for child := range preds[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Roots returns the top-most classes: those with no superclass in the graph.
func (h *Hierarchy) Roots() ([]string, error) {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}
	var roots []string
	for name, out := range adj {
		if len(out) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

// WriteDOT renders the hierarchy in Graphviz DOT, superclasses on top.
func (h *Hierarchy) WriteDOT(w io.Writer) error {
	if err := draw.DOT(h.g, w, draw.GraphAttribute("rankdir", "BT")); err != nil {
		return fmt.Errorf("failed to render DOT: %w", err)
	}
	return nil
}
