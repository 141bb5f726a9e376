// Package archive enumerates the class files of a batch: the entries of a
// jar/zip/jmod archive or the files under a directory.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrUnsupported is returned for paths that are neither a directory nor a
// zip-based archive.
var ErrUnsupported = errors.New("unsupported archive type")

// jmodMagic prefixes the zip data of a .jmod file.
var jmodMagic = []byte{'J', 'M', 0x01, 0x00}

// Entry is one selected file in a Source.
type Entry struct {
	// Name is the slash-separated path inside the source.
	Name string
	Size int64

	open func() (io.ReadCloser, error)
}

// Read returns the entry's contents.
func (e Entry) Read() ([]byte, error) {
	rc, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", e.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.Name, err)
	}
	return data, nil
}

// Source is an opened batch.
type Source interface {
	// Path is the archive file or directory the source was opened from.
	Path() string
	// Count is the number of entries Walk will visit.
	Count() int
	// Walk calls fn for each entry in name order. It stops at the first
	// error from fn or when ctx is done.
	Walk(ctx context.Context, fn func(Entry) error) error
	Close() error
}

// Open opens path as a batch. Directories are walked recursively; files are
// read as zip archives (jar, war, zip, jmod).
func Open(path string, filter *Filter) (Source, error) {
	if filter == nil {
		filter = DefaultFilter()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return openDir(path, filter)
	}
	return openZip(path, info.Size(), filter)
}

type zipSource struct {
	path    string
	file    *os.File
	entries []*zip.File
	prefix  string
}

func openZip(path string, size int64, filter *Filter) (*zipSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	zr, prefix, err := NewZipReader(f, size)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupported, path, err)
	}

	src := &zipSource{path: path, file: f, prefix: prefix}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		if !strings.HasPrefix(zf.Name, prefix) {
			continue
		}
		if filter.Match(strings.TrimPrefix(zf.Name, prefix)) {
			src.entries = append(src.entries, zf)
		}
	}
	sort.Slice(src.entries, func(i, j int) bool { return src.entries[i].Name < src.entries[j].Name })
	return src, nil
}

// NewZipReader opens r as a zip archive. A .jmod header is skipped, in
// which case the returned prefix is "classes/", the directory holding the
// module's class files.
func NewZipReader(r io.ReaderAt, size int64) (*zip.Reader, string, error) {
	head := make([]byte, len(jmodMagic))
	if size >= int64(len(head)) {
		if _, err := r.ReadAt(head, 0); err != nil {
			return nil, "", err
		}
		if bytes.Equal(head, jmodMagic) {
			off := int64(len(jmodMagic))
			zr, err := zip.NewReader(io.NewSectionReader(r, off, size-off), size-off)
			return zr, "classes/", err
		}
	}
	zr, err := zip.NewReader(r, size)
	return zr, "", err
}

func (s *zipSource) Path() string { return s.path }
func (s *zipSource) Count() int   { return len(s.entries) }
func (s *zipSource) Close() error { return s.file.Close() }

func (s *zipSource) Walk(ctx context.Context, fn func(Entry) error) error {
	for _, zf := range s.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := Entry{
			Name: strings.TrimPrefix(zf.Name, s.prefix),
			Size: int64(zf.UncompressedSize64),
			open: func() (io.ReadCloser, error) { return zf.Open() },
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

type dirSource struct {
	root  string
	files []string
	sizes []int64
}

func openDir(root string, filter *Filter) (*dirSource, error) {
	src := &dirSource{root: root}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if !filter.Match(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		src.files = append(src.files, relPath)
		src.sizes = append(src.sizes, info.Size())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return src, nil
}

func (s *dirSource) Path() string { return s.root }
func (s *dirSource) Count() int   { return len(s.files) }
func (s *dirSource) Close() error { return nil }

func (s *dirSource) Walk(ctx context.Context, fn func(Entry) error) error {
	for i, rel := range s.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		full := filepath.Join(s.root, filepath.FromSlash(rel))
		entry := Entry{
			Name: rel,
			Size: s.sizes[i],
			open: func() (io.ReadCloser, error) { return os.Open(full) },
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}
