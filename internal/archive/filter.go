package archive

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Default patterns applied when the configuration gives none.
var (
	DefaultInclude = []string{"**.class"}
	DefaultIgnore  = []string{"META-INF/**"}
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Filter selects which archive entries are analyzed. Paths are matched in
// slash form relative to the archive root.
type Filter struct {
	include []compiledPattern
	ignore  []compiledPattern
}

// NewFilter compiles include and ignore globs. Empty include means
// DefaultInclude.
func NewFilter(include, ignore []string) (*Filter, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}

	f := &Filter{}
	var err error
	if f.include, err = compile(include); err != nil {
		return nil, err
	}
	if f.ignore, err = compile(ignore); err != nil {
		return nil, err
	}
	return f, nil
}

// DefaultFilter returns the filter built from the default patterns.
func DefaultFilter() *Filter {
	f, err := NewFilter(DefaultInclude, DefaultIgnore)
	if err != nil {
		panic(err)
	}
	return f
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Match reports whether the entry at path should be analyzed.
func (f *Filter) Match(path string) bool {
	path = strings.TrimPrefix(path, "/")
	if matchesAny(path, f.ignore) || matchesAny(path+"/**", f.ignore) {
		return false
	}
	return matchesAny(path, f.include)
}

// matchesAny checks if a path matches any of the given patterns.
func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level entries also match "**/"-prefixed patterns, so "**/*.class"
	// covers "Main.class" as well as "com/x/Main.class".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}
	return false
}
