// Package ignore provides gitignore-style pattern matching for deciding
// which files belong in a package archive.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File is the per-package ignore file read from a package root before
// archiving. Same line syntax as gitignore.
const File = ".jvcliignore"

// Pattern is a single compiled ignore pattern.
type Pattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // pattern started with /, matches from the root only
}

// Matcher holds compiled ignore patterns and answers whether a path is
// excluded from packaging.
type Matcher struct {
	patterns []Pattern
	basePath string
}

// NewMatcher creates an empty Matcher rooted at basePath.
func NewMatcher(basePath string) *Matcher {
	return &Matcher{
		patterns: []Pattern{},
		basePath: basePath,
	}
}

// AddPattern adds a single pattern line to the matcher.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)

	// Skip empty lines and comments
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p := Pattern{}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	// Unanchored patterns without a slash match the basename at any depth
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// AddPatterns adds multiple pattern lines to the matcher.
func (m *Matcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// LoadFile loads patterns from an ignore file. A missing file is not an
// error; packages without one just use the defaults.
func (m *Matcher) LoadFile(path string) error {
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

// LoadDefaults adds the build artifacts that never belong in a published
// package: generated jac output and Python bytecode caches, at any depth.
func (m *Matcher) LoadDefaults() {
	m.AddPatterns([]string{
		"__jac_gen__/",
		"__pycache__/",
	})
}

// Match reports whether path should be excluded. The path must be relative
// to the matcher's base path; isDir says whether it names a directory.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")

	ignored := false

	for _, p := range m.patterns {
		// A dirOnly pattern never matches a file directly, but does match
		// files living under a matching directory.
		if p.dirOnly && !isDir {
			if m.matchDirPattern(p.pattern, path) {
				ignored = !p.negated
			}
			continue
		}

		if m.matchPattern(p.pattern, path) {
			ignored = !p.negated
		}
	}

	return ignored
}

// matchDirPattern checks whether any strict parent of path matches pattern.
func (m *Matcher) matchDirPattern(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "/")
		if m.matchPattern(pattern, prefix) {
			return true
		}
	}
	return false
}

// matchPattern checks a single pattern against a path, treating a match on
// the path itself and a match on a containing directory the same way.
func (m *Matcher) matchPattern(pattern, path string) bool {
	matched, _ := doublestar.Match(pattern, path)
	if matched {
		return true
	}

	if !strings.HasSuffix(pattern, "/**") {
		matched, _ = doublestar.Match(pattern+"/**", path)
		if matched {
			return true
		}
	}

	return false
}

// MatchPath is Match with the isDir flag resolved by a filesystem stat.
func (m *Matcher) MatchPath(path string) bool {
	fullPath := filepath.Join(m.basePath, path)
	info, err := os.Stat(fullPath)
	if err != nil {
		return m.Match(path, false)
	}
	return m.Match(path, info.IsDir())
}
