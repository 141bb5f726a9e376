package resolver

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/maypok86/otter"

	"github.com/mvp-joe/bytemetrics/internal/archive"
	"github.com/mvp-joe/bytemetrics/internal/classfile"
)

// Archive resolves classes from a jar, zip, or jmod file. The entry index is
// built once on open; entry bytes go through a shared byte-bounded cache.
type Archive struct {
	path  string
	file  *os.File
	index map[string]*zip.File
	cache *ByteCache
}

// OpenArchive indexes the class entries of the archive at path. cache may
// be nil.
func OpenArchive(path string, cache *ByteCache) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	zr, prefix, err := archive.NewZipReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}

	a := &Archive{path: path, file: f, index: make(map[string]*zip.File), cache: cache}
	for _, zf := range zr.File {
		name := zf.Name
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".class") {
			continue
		}
		a.index[strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".class")] = zf
	}
	return a, nil
}

// Len is the number of indexed classes.
func (a *Archive) Len() int { return len(a.index) }

func (a *Archive) Resolve(name string) ([]byte, error) {
	key := classfile.InternalName(name)
	zf, ok := a.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	cacheKey := a.path + "!" + key
	if data, ok := a.cache.Get(cacheKey); ok {
		return data, nil
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in %s: %w", key, a.path, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s in %s: %w", key, a.path, err)
	}

	a.cache.Set(cacheKey, data)
	return data, nil
}

func (a *Archive) Close() error {
	return a.file.Close()
}

// ByteCache bounds resolved class bytes by total size and counts hits and
// misses. It outlives a single run when the owning Classpath is reused. A
// nil *ByteCache caches nothing.
type ByteCache struct {
	cache otter.Cache[string, []byte]
}

// NewByteCache creates a cache holding at most maxBytes of class data.
func NewByteCache(maxBytes int) (*ByteCache, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxBytes)
	}
	c, err := otter.MustBuilder[string, []byte](maxBytes).
		CollectStats().
		Cost(func(key string, value []byte) uint32 {
			return uint32(len(key) + len(value))
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build class cache: %w", err)
	}
	return &ByteCache{cache: c}, nil
}

func (c *ByteCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *ByteCache) Set(key string, data []byte) {
	if c == nil {
		return
	}
	c.cache.Set(key, data)
}

// Hits is the number of lookups served from the cache.
func (c *ByteCache) Hits() int64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Hits()
}

// Misses is the number of lookups that fell through to the archive.
func (c *ByteCache) Misses() int64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Misses()
}

// Size is the number of cached entries.
func (c *ByteCache) Size() int {
	if c == nil {
		return 0
	}
	return c.cache.Size()
}

func (c *ByteCache) Close() {
	if c != nil {
		c.cache.Close()
	}
}
