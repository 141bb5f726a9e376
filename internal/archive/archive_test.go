package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/bytemetrics/internal/archive"
	"github.com/mvp-joe/bytemetrics/internal/archive/archivetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Open/Walk:
// - jar entries are filtered by include/ignore and visited in name order
// - jmod entries are read from classes/ with the prefix stripped
// - directories are walked recursively with slash-relative names
// - Entry.Read returns the stored bytes
// - non-archive files fail with ErrUnsupported
// - a cancelled context stops the walk

func names(t *testing.T, src archive.Source) []string {
	t.Helper()
	var out []string
	err := src.Walk(context.Background(), func(e archive.Entry) error {
		out = append(out, e.Name)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestOpen_Jar(t *testing.T) {
	t.Parallel()

	path := archivetest.WriteJar(t, t.TempDir(), "app.jar", map[string][]byte{
		"com/x/B.class":                     []byte("b"),
		"com/x/A.class":                     []byte("a"),
		"META-INF/MANIFEST.MF":              []byte("Manifest-Version: 1.0\n"),
		"META-INF/versions/9/com/x/A.class": []byte("a9"),
		"readme.txt":                        []byte("hi"),
	})

	src, err := archive.Open(path, nil)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, path, src.Path())
	assert.Equal(t, 2, src.Count())
	assert.Equal(t, []string{"com/x/A.class", "com/x/B.class"}, names(t, src))

	var data []byte
	err = src.Walk(context.Background(), func(e archive.Entry) error {
		if e.Name == "com/x/B.class" {
			assert.Equal(t, int64(1), e.Size)
			b, readErr := e.Read()
			data = b
			return readErr
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)
}

func TestOpen_Jmod(t *testing.T) {
	t.Parallel()

	path := archivetest.WriteJmod(t, t.TempDir(), "java.base.jmod", map[string][]byte{
		"classes/java/lang/Object.class": []byte("obj"),
		"classes/module-info.class":      []byte("mod"),
		"lib/libjava.so":                 []byte("elf"),
	})

	src, err := archive.Open(path, nil)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, []string{"java/lang/Object.class", "module-info.class"}, names(t, src))
}

func TestOpen_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivetest.WriteTree(t, dir, map[string][]byte{
		"com/x/A.class":     []byte("a"),
		"com/x/y/B.class":   []byte("bb"),
		"com/x/notes.md":    []byte("#"),
		"generated/C.class": []byte("c"),
	})

	filter, err := archive.NewFilter(nil, []string{"generated/**"})
	require.NoError(t, err)
	src, err := archive.Open(dir, filter)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, []string{"com/x/A.class", "com/x/y/B.class"}, names(t, src))
}

func TestOpen_Unsupported(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0644))

	_, err := archive.Open(path, nil)
	assert.ErrorIs(t, err, archive.ErrUnsupported)

	_, err = archive.Open(filepath.Join(t.TempDir(), "missing.jar"), nil)
	assert.Error(t, err)
}

func TestWalk_Cancelled(t *testing.T) {
	t.Parallel()

	path := archivetest.WriteJar(t, t.TempDir(), "app.jar", map[string][]byte{
		"A.class": []byte("a"),
		"B.class": []byte("b"),
	})
	src, err := archive.Open(path, nil)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	visited := 0
	err = src.Walk(ctx, func(e archive.Entry) error {
		visited++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, visited)
}
