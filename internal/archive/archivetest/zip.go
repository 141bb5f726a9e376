// Package archivetest writes jar and jmod fixtures for tests.
package archivetest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// WriteJar writes files into a zip archive at dir/name and returns its path.
func WriteJar(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), nil, files)
}

// WriteJmod writes a jmod archive: the "JM" header followed by zip data.
// Class files should be placed under "classes/".
func WriteJmod(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), []byte{'J', 'M', 0x01, 0x00}, files)
}

// WriteTree writes files below dir, creating parent directories.
func WriteTree(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}
}

func write(t *testing.T, path string, header []byte, files map[string][]byte) string {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	if len(header) > 0 {
		_, err = f.Write(header)
		require.NoError(t, err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
