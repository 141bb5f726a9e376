package resolver

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// archiveExts are the file extensions opened as archives.
var archiveExts = map[string]bool{".jar": true, ".zip": true, ".jmod": true, ".war": true}

// Classpath is a Chain over directories and archives that owns their open
// files and the shared byte cache. It is safe for concurrent use; open it
// once per session and pass it to every run so archive reads are cached
// across runs.
type Classpath struct {
	Chain
	archives []*Archive
	cache    *ByteCache
}

// NewClasspath opens each entry in order. Entries may be class directories,
// archives, "dir/*" (every archive in dir), or a JDK home whose jmods/
// directory is expanded. Missing entries are skipped with a warning.
func NewClasspath(entries []string, cacheBytes int) (*Classpath, error) {
	cp := &Classpath{}
	if cacheBytes > 0 {
		cache, err := NewByteCache(cacheBytes)
		if err != nil {
			return nil, err
		}
		cp.cache = cache
	}

	for _, entry := range entries {
		paths, err := expand(entry)
		if err != nil {
			log.Printf("Warning: skipping classpath entry %s: %v\n", entry, err)
			continue
		}
		for _, path := range paths {
			if err := cp.add(path); err != nil {
				cp.Close()
				return nil, err
			}
		}
	}
	return cp, nil
}

func (cp *Classpath) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat classpath entry %s: %w", path, err)
	}
	if info.IsDir() {
		cp.Chain = append(cp.Chain, NewDir(path))
		return nil
	}
	a, err := OpenArchive(path, cp.cache)
	if err != nil {
		return err
	}
	cp.archives = append(cp.archives, a)
	cp.Chain = append(cp.Chain, a)
	return nil
}

// Cache returns the byte cache shared by the classpath archives, or nil when
// caching is disabled.
func (cp *Classpath) Cache() *ByteCache {
	return cp.cache
}

// expand turns one classpath entry into concrete directories and archives.
func expand(entry string) ([]string, error) {
	if dir, ok := strings.CutSuffix(entry, string(filepath.Separator)+"*"); ok || entry == "*" {
		if entry == "*" {
			dir = "."
		}
		return archivesIn(dir)
	}

	info, err := os.Stat(entry)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{entry}, nil
	}

	jmods := filepath.Join(entry, "jmods")
	if st, err := os.Stat(jmods); err == nil && st.IsDir() {
		return archivesIn(jmods)
	}
	return []string{entry}, nil
}

func archivesIn(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, de := range des {
		if !de.IsDir() && archiveExts[strings.ToLower(filepath.Ext(de.Name()))] {
			out = append(out, filepath.Join(dir, de.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close releases every open archive and the cache.
func (cp *Classpath) Close() error {
	var errs []error
	for _, a := range cp.archives {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	cp.archives = nil
	cp.cache.Close()
	cp.cache = nil
	return errors.Join(errs...)
}
