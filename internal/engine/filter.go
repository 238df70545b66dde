package engine

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// pathFilter applies exclude/include glob patterns to the
// slash-separated relative path of a discovered file. Include patterns
// override excludes.
type pathFilter struct {
	excludes []string
	includes []string
}

func newPathFilter(excludes, includes []string) (*pathFilter, error) {
	for _, p := range append(append([]string{}, excludes...), includes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	return &pathFilter{excludes: excludes, includes: includes}, nil
}

func (f *pathFilter) skip(relPath string) bool {
	for _, p := range f.includes {
		if doublestar.MatchUnvalidated(p, relPath) {
			return false
		}
	}
	for _, p := range f.excludes {
		if doublestar.MatchUnvalidated(p, relPath) {
			return true
		}
	}
	return false
}
