// Package pattern matches connector names and template types against
// case-insensitive glob patterns.
package pattern

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher reports whether a string matches any of its patterns.
type Matcher struct {
	globs    []glob.Glob
	patterns []string
}

// Compile builds a Matcher. Patterns are lowercased; an empty list matches nothing.
func Compile(patterns ...string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern: compile %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// MustCompile is Compile that panics on a bad pattern. For package-level defaults.
func MustCompile(patterns ...string) *Matcher {
	m, err := Compile(patterns...)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether s matches any pattern. A nil Matcher matches nothing.
func (m *Matcher) Match(s string) bool {
	if m == nil {
		return false
	}
	s = strings.ToLower(s)
	for _, g := range m.globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// MatchAny reports whether any of ss matches.
func (m *Matcher) MatchAny(ss []string) bool {
	for _, s := range ss {
		if m.Match(s) {
			return true
		}
	}
	return false
}

func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(m.patterns, ",")
}
