// Package ignore matches replay file names against user supplied glob
// patterns, so that watchers can leave some replays alone.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Matcher holds an ordered list of patterns. Later patterns win, and a
// pattern starting with ! re-includes names matched earlier.
type Matcher struct {
	patterns []Pattern
}

// Pattern represents a single ignore pattern
type Pattern struct {
	Glob       string
	IsNegation bool
}

// New creates a matcher from patterns. Blank lines and # comments are skipped.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	m.AddPatterns(patterns)
	return m
}

// LoadFromFile appends the patterns of a file, one per line. A missing file
// is not an error.
func (m *Matcher) LoadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// AddPatterns adds multiple patterns to the matcher
func (m *Matcher) AddPatterns(patterns []string) {
	for _, pattern := range patterns {
		m.AddPattern(pattern)
	}
}

// AddPattern adds a single pattern to the matcher
func (m *Matcher) AddPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	p := Pattern{Glob: pattern}
	if strings.HasPrefix(pattern, "!") {
		p.IsNegation = true
		p.Glob = pattern[1:]
	}

	// malformed globs never match; drop them up front
	if _, err := filepath.Match(p.Glob, ""); err != nil {
		return
	}

	m.patterns = append(m.patterns, p)
}

// ShouldIgnore reports whether the base name of path is excluded.
// A nil matcher ignores nothing.
func (m *Matcher) ShouldIgnore(path string) bool {
	if m == nil {
		return false
	}

	name := filepath.Base(path)
	ignored := false
	for _, p := range m.patterns {
		if matched, _ := filepath.Match(p.Glob, name); matched {
			ignored = !p.IsNegation
		}
	}
	return ignored
}

// Patterns returns all configured patterns in their original form
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}

	result := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		if p.IsNegation {
			result[i] = "!" + p.Glob
		} else {
			result[i] = p.Glob
		}
	}
	return result
}

// Len returns the number of active patterns
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
