package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Watcher:
// - New fails for a missing target
// - a written class file in a directory target fires one callback
// - rapid writes are coalesced and deduplicated into one batch
// - files with other extensions are ignored
// - classes in newly created packages are picked up
// - a file target only reacts to the archive itself, not its siblings
// - Stop is idempotent and works without Start
// - Start requires a callback

const testDebounce = 100 * time.Millisecond

func startWatcher(t *testing.T, target string) <-chan []string {
	t.Helper()

	w, err := New(target, WithDebounce(testDebounce))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	batches := make(chan []string, 8)
	require.NoError(t, w.Start(context.Background(), func(changed []string) {
		batches <- changed
	}))
	// Let the loop settle before generating events.
	time.Sleep(50 * time.Millisecond)
	return batches
}

func waitBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(3 * time.Second):
		t.Fatal("callback not called before timeout")
		return nil
	}
}

func assertNoBatch(t *testing.T, batches <-chan []string) {
	t.Helper()
	select {
	case b := <-batches:
		t.Fatalf("unexpected callback with %v", b)
	case <-time.After(4 * testDebounce):
	}
}

func TestNew_MissingTarget(t *testing.T) {
	t.Parallel()

	_, err := New(filepath.Join(t.TempDir(), "missing.jar"))
	assert.Error(t, err)
}

func TestWatcher_ClassFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batches := startWatcher(t, dir)

	path := filepath.Join(dir, "A.class")
	require.NoError(t, os.WriteFile(path, []byte{0xCA, 0xFE}, 0644))

	assert.Contains(t, waitBatch(t, batches), path)
}

func TestWatcher_CoalescesRapidWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batches := startWatcher(t, dir)

	a := filepath.Join(dir, "A.class")
	b := filepath.Join(dir, "B.class")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(a, []byte{byte(i)}, 0644))
		require.NoError(t, os.WriteFile(b, []byte{byte(i)}, 0644))
	}

	assert.Equal(t, []string{a, b}, waitBatch(t, batches))
	assertNoBatch(t, batches)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batches := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	assertNoBatch(t, batches)
}

func TestWatcher_NewPackageDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batches := startWatcher(t, dir)

	pkg := filepath.Join(dir, "com", "acme")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(pkg, "C.class")
	require.NoError(t, os.WriteFile(path, []byte{1}, 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case b := <-batches:
			if contains(b, path) {
				return
			}
		case <-deadline:
			t.Fatal("class in new package was not reported")
		}
	}
}

func TestWatcher_FileTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jar := filepath.Join(dir, "app.jar")
	require.NoError(t, os.WriteFile(jar, []byte("PK"), 0644))

	batches := startWatcher(t, jar)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.jar"), []byte("PK"), 0644))
	assertNoBatch(t, batches)

	require.NoError(t, os.WriteFile(jar, []byte("PK2"), 0644))
	assert.Equal(t, []string{jar}, waitBatch(t, batches))
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	w, err := New(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_StartRequiresCallback(t *testing.T) {
	t.Parallel()

	w, err := New(t.TempDir())
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background(), nil))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
