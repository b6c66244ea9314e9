// keywords.go: Lazily evaluated keyword values
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Keywords recognized in check parameters.
const (
	KeywordRoot              = "ROOT"
	KeywordGitignoreContents = "GITIGNORE_CONTENTS"
)

// KeywordCache maps keywords to their values for one run. ROOT is fixed at
// construction; GITIGNORE_CONTENTS is read from <root>/.gitignore on first
// use and then reused. The cache is safe for concurrent use.
type KeywordCache struct {
	root   string
	logger *slog.Logger

	gitignoreOnce sync.Once
	gitignore     []string
}

// NewKeywordCache creates a cache rooted at root.
func NewKeywordCache(root string, logger *slog.Logger) *KeywordCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordCache{root: root, logger: logger}
}

// IsKeyword reports whether s names a keyword.
func IsKeyword(s string) bool {
	return s == KeywordRoot || s == KeywordGitignoreContents
}

// Root returns the value of ROOT.
func (k *KeywordCache) Root() string { return k.root }

// Lookup returns the value of keyword: a string for ROOT, a []string for
// GITIGNORE_CONTENTS.
func (k *KeywordCache) Lookup(keyword string) (any, bool) {
	switch keyword {
	case KeywordRoot:
		return k.root, true
	case KeywordGitignoreContents:
		return k.Gitignore(), true
	}
	return nil, false
}

// Gitignore returns the raw lines of the project .gitignore. A missing file
// yields no lines and a warning.
func (k *KeywordCache) Gitignore() []string {
	k.gitignoreOnce.Do(func() {
		k.gitignore = k.loadGitignore()
	})
	out := make([]string, len(k.gitignore))
	copy(out, k.gitignore)
	return out
}

func (k *KeywordCache) loadGitignore() []string {
	path := filepath.Join(k.root, ".gitignore")
	// #nosec G304 -- fixed file name under the project root
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			k.logger.Warn("no .gitignore found", "root", k.root)
		} else {
			k.logger.Warn("cannot read .gitignore", "path", path, "error", err)
		}
		return nil
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		k.logger.Warn("error reading .gitignore", "path", path, "error", err)
	}
	return lines
}
