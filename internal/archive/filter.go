package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns hide resource-fork and OS metadata entries
var DefaultIgnorePatterns = []string{
	"__MACOSX/**",
	"**/__MACOSX/**",
	".DS_Store",
	"Thumbs.db",
}

// Filter decides which archive entries are hidden from the viewer.
// Patterns containing a slash match the whole entry path; other patterns
// match the base name.
type Filter struct {
	full []glob.Glob
	base []glob.Glob
}

// NewFilter compiles patterns. A nil Filter ignores nothing.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		if strings.Contains(p, "/") {
			f.full = append(f.full, g)
		} else {
			f.base = append(f.base, g)
		}
	}
	return f, nil
}

// DefaultFilter returns a Filter for DefaultIgnorePatterns
func DefaultFilter() *Filter {
	f, err := NewFilter(DefaultIgnorePatterns)
	if err != nil {
		panic(err)
	}
	return f
}

// Ignored reports whether the entry name should be hidden
func (f *Filter) Ignored(name string) bool {
	if f == nil {
		return false
	}
	name = strings.ReplaceAll(name, "\\", "/")
	for _, g := range f.full {
		if g.Match(name) {
			return true
		}
	}
	base := path.Base(name)
	for _, g := range f.base {
		if g.Match(base) {
			return true
		}
	}
	return false
}
