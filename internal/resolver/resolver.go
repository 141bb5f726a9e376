// Package resolver finds the bytes of classes outside the analyzed batch,
// typically platform or library ancestors, on a classpath of directories
// and archives.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/bytemetrics/internal/classfile"
)

// ErrNotFound is returned when no classpath entry holds the class.
var ErrNotFound = errors.New("class not found")

// ClassResolver returns the raw bytes of a class. Names may be dotted or
// slashed.
type ClassResolver interface {
	Resolve(name string) ([]byte, error)
}

// Dir resolves classes from a directory of compiled classes laid out by
// package.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Resolve(name string) ([]byte, error) {
	rel := filepath.FromSlash(classfile.InternalName(name) + ".class")
	data, err := os.ReadFile(filepath.Join(d.root, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read class %s: %w", name, err)
	}
	return data, nil
}

// Chain tries each resolver in order and returns the first hit.
type Chain []ClassResolver

func (c Chain) Resolve(name string) ([]byte, error) {
	var firstErr error
	for _, r := range c {
		data, err := r.Resolve(name)
		if err == nil {
			return data, nil
		}
		if firstErr == nil && !errors.Is(err, ErrNotFound) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// SplitClasspath splits a classpath string on the OS list separator,
// dropping empty elements.
func SplitClasspath(cp string) []string {
	var out []string
	for _, p := range filepath.SplitList(cp) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
