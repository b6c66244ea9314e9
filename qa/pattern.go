// pattern.go: gitignore-style path patterns
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/gobwas/glob"
)

// Pattern is one compiled gitignore-style pattern.
//
// Supported syntax: "*" matches any run of characters other than "/", "?"
// matches one such character, "**" crosses directories and "[...]" is a
// character class. A leading "/" anchors the pattern at the root; without
// it the pattern matches at any depth below the root. A trailing "/" is
// ignored. Negation with "!" is not supported and "!" is matched literally.
type Pattern struct {
	source string
	globs  []glob.Glob
}

// CompilePattern compiles line relative to root. Blank lines and comments
// yield (nil, nil).
func CompilePattern(root, line string, logger *slog.Logger) (*Pattern, error) {
	pat := strings.TrimSpace(line)
	if pat == "" || strings.HasPrefix(pat, "#") {
		return nil, nil
	}
	if strings.HasPrefix(pat, "!") && logger != nil {
		logger.Warn("pattern negation with '!' is not supported, matching it literally", "pattern", pat)
	}
	if len(pat) > 1 {
		pat = strings.TrimRight(pat, "/")
		if pat == "" {
			pat = "/"
		}
	}
	// Braces are alternation in glob syntax but literal in gitignore.
	pat = strings.NewReplacer("{", `\{`, "}", `\}`).Replace(pat)

	prefix := glob.QuoteMeta(strings.TrimSuffix(filepath.ToSlash(root), "/"))
	var exprs []string
	if strings.HasPrefix(pat, "/") {
		exprs = []string{prefix + pat}
	} else {
		exprs = []string{prefix + "/" + pat, prefix + "/**/" + pat}
	}

	p := &Pattern{source: strings.TrimSpace(line)}
	for _, expr := range exprs {
		g, err := glob.Compile(expr, '/')
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidPattern, "invalid pattern '"+p.source+"'").
				WithContext("pattern", p.source)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// String returns the pattern as written.
func (p *Pattern) String() string { return p.source }

// Match reports whether the absolute path matches the pattern itself,
// without looking at its parent directories.
func (p *Pattern) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, g := range p.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// PatternSet is a list of patterns sharing one root. The zero value matches
// nothing.
type PatternSet struct {
	root     string
	patterns []*Pattern
}

// CompilePatterns compiles every line, skipping blanks and comments.
func CompilePatterns(root string, lines []string, logger *slog.Logger) (*PatternSet, error) {
	set := &PatternSet{root: filepath.Clean(root)}
	for _, line := range lines {
		p, err := CompilePattern(set.root, line, logger)
		if err != nil {
			return nil, err
		}
		if p != nil {
			set.patterns = append(set.patterns, p)
		}
	}
	return set, nil
}

// Len returns the number of compiled patterns.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Sources returns the patterns as written.
func (s *PatternSet) Sources() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.source
	}
	return out
}

// MatchPath reports whether path itself matches any pattern.
func (s *PatternSet) MatchPath(path string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// Match reports whether path, or any of its ancestors below the root,
// matches a pattern. This is how an excluded directory excludes everything
// in it.
func (s *PatternSet) Match(path string) bool {
	if s.Len() == 0 {
		return false
	}
	path = filepath.Clean(path)
	for p := path; ; {
		if s.MatchPath(p) {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p || parent == s.root || !strings.HasPrefix(parent, s.root) {
			return false
		}
		p = parent
	}
}
