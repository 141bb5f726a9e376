package hierarchy

import (
	"bytes"
	"testing"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Hierarchy:
// - batch classes and their external superclasses become vertices
// - ancestors are listed nearest first
// - subclasses include indirect descendants
// - roots are classes without a superclass in the graph
// - DOT output contains every class and the bottom-to-top rank direction

func sample(t *testing.T) *Hierarchy {
	t.Helper()
	h, err := Build(
		map[string]string{
			"app/Base":    "java/lang/Object",
			"app/Service": "app/Base",
			"app/Cache":   "app/Service",
			"app/Main":    "java/lang/Object",
		},
		map[string]int{"app/Base": 1, "app/Service": 2, "app/Cache": 3, "app/Main": 1},
	)
	require.NoError(t, err)
	return h
}

func TestBuild(t *testing.T) {
	t.Parallel()

	h := sample(t)
	assert.Equal(t, 5, h.Order())
	assert.True(t, h.IsExternal("java/lang/Object"))
	assert.False(t, h.IsExternal("app/Base"))
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	h := sample(t)
	chain, err := h.Ancestors("app/Cache")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Service", "app/Base", "java/lang/Object"}, chain)

	_, err = h.Ancestors("app/Nope")
	assert.Error(t, err)
}

func TestSubclasses(t *testing.T) {
	t.Parallel()

	h := sample(t)
	subs, err := h.Subclasses("app/Base")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Cache", "app/Service"}, subs)

	subs, err = h.Subclasses("java/lang/Object")
	require.NoError(t, err)
	assert.Len(t, subs, 4)

	subs, err = h.Subclasses("app/Cache")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRoots(t *testing.T) {
	t.Parallel()

	h, err := Build(map[string]string{"A": "", "B": "A", "C": "lib/X"}, nil)
	require.NoError(t, err)

	roots, err := h.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "lib/X"}, roots)
}

func TestWriteDOT(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sample(t).WriteDOT(&buf))
	out := buf.String()

	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "rankdir")
	assert.Contains(t, out, "app/Service (2)")
	assert.Contains(t, out, "dashed")
}

func TestFromReport(t *testing.T) {
	t.Parallel()

	r := &analyzer.Report{
		Parents: map[string]string{"app/A": "java/lang/Object", "app/B": "app/A"},
		Summary: &metrics.Summary{Classes: []metrics.ClassMetrics{
			{Name: "app/A", Depth: 1},
			{Name: "app/B", Depth: 2},
		}},
	}

	h, err := FromReport(r)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Order())

	var buf bytes.Buffer
	require.NoError(t, h.WriteDOT(&buf))
	assert.Contains(t, buf.String(), "app/B (2)")
}
