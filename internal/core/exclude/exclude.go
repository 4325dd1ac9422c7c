package exclude

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fenilsonani/conserve/internal/core/apath"
)

// Exclude is a set of glob patterns matched against apaths.
//
// Patterns use doublestar syntax. A pattern without a slash matches a name
// in any directory, so "*.o" excludes object files everywhere; a pattern
// with a slash is anchored at the tree root.
type Exclude struct {
	patterns []string
}

// Nothing excludes no paths.
func Nothing() Exclude {
	return Exclude{}
}

// FromPatterns validates the given globs and builds an exclusion set.
func FromPatterns(patterns []string) (Exclude, error) {
	var compiled []string
	for _, pat := range patterns {
		p := strings.TrimPrefix(pat, "/")
		if !strings.Contains(p, "/") {
			p = "**/" + p
		}
		if !doublestar.ValidatePattern(p) {
			return Exclude{}, fmt.Errorf("invalid exclude pattern %q", pat)
		}
		compiled = append(compiled, p)
	}
	return Exclude{patterns: compiled}, nil
}

// Matches reports whether the apath is excluded.
func (e Exclude) Matches(ap apath.Apath) bool {
	if len(e.patterns) == 0 || ap.IsRoot() {
		return false
	}
	rel := strings.TrimPrefix(string(ap), "/")
	for _, pat := range e.patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
