package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Store:
// - Save then Get round-trips headline metrics, classes, and skipped entries
// - Get accepts a unique ID prefix and rejects unknown IDs
// - List orders newest first and honors the limit
// - Delete cascades to per-class rows
// - Open creates a file database whose schema version is recorded
// - DefaultPath lives under the home directory and fails without one

func makeReport(source string, started time.Time, classes ...metrics.ClassMetrics) *analyzer.Report {
	return &analyzer.Report{
		Source:     source,
		StartedAt:  started,
		DurationMS: 42,
		Analyzed:   len(classes),
		Skipped:    []analyzer.Skipped{{Entry: "bad/X.class", Reason: "truncated class file"}},
		Summary: &metrics.Summary{
			ABC:                  metrics.ABC{Assignments: 3, Branches: 4, Conditions: 1},
			Magnitude:            5.099,
			AverageFieldCount:    1.5,
			AverageDepth:         1.5,
			MaxDepth:             2,
			AverageOverrideCount: 0.5,
			Classes:              classes,
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	ctx := context.Background()
	started := time.UnixMilli(1_700_000_000_000)
	report := makeReport("app.jar", started,
		metrics.ClassMetrics{Name: "app/B", Fields: 2, Depth: 2, Overrides: 1},
		metrics.ClassMetrics{Name: "app/A", Fields: 1, Depth: 1, Overrides: 0},
	)

	id, err := store.Save(ctx, report)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "app.jar", run.Source)
	assert.True(t, started.Equal(run.StartedAt))
	assert.Equal(t, int64(42), run.DurationMS)
	assert.Equal(t, 2, run.Analyzed)
	assert.Equal(t, metrics.ABC{Assignments: 3, Branches: 4, Conditions: 1}, run.Summary.ABC)
	assert.Equal(t, 5.099, run.Summary.Magnitude)
	assert.Equal(t, 2, run.Summary.MaxDepth)
	assert.Equal(t, []metrics.ClassMetrics{
		{Name: "app/A", Fields: 1, Depth: 1, Overrides: 0},
		{Name: "app/B", Fields: 2, Depth: 2, Overrides: 1},
	}, run.Summary.Classes)
	assert.Equal(t, report.Skipped, run.Skipped)

	rebuilt := run.Report()
	assert.Equal(t, "app.jar", rebuilt.Source)
	assert.Equal(t, 0.5, rebuilt.Summary.AverageOverrideCount)

	prefixed, err := store.Get(ctx, id[:8])
	require.NoError(t, err)
	assert.Equal(t, id, prefixed.ID)

	_, err = store.Get(ctx, "00000000-dead")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_GetAmbiguousPrefix(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := store.Save(ctx, makeReport("app.jar", time.Now()))
		require.NoError(t, err)
	}

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrAmbiguousID)
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Save(ctx, makeReport("app.jar", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.Nil(t, runs[0].Summary.Classes)

	runs, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	ctx := context.Background()
	id, err := store.Save(ctx, makeReport("app.jar", time.Now(),
		metrics.ClassMetrics{Name: "app/A", Fields: 1}))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM class_metrics`).Scan(&n))
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, store.Delete(ctx, id), ErrRunNotFound)
}

func TestStore_SaveRequiresMetrics(t *testing.T) {
	t.Parallel()

	_, err := NewTestStore(t).Save(context.Background(), &analyzer.Report{Source: "x"})
	assert.Error(t, err)
}

func TestOpen_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := Open(path)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), makeReport("app.jar", time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := GetSchemaVersion(reopened.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	runs, err := reopened.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDefaultPath(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".bytemetrics", "history.db"), path)
}

func TestDefaultPath_NoHome(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	t.Setenv("HOME", "")

	_, err := DefaultPath()
	assert.Error(t, err)

	store, err := Open("")
	assert.Error(t, err)
	assert.Nil(t, store)
}
