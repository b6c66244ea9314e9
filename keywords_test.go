// keywords_test.go: Tests for keyword expansion values
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeywordCache_Root(t *testing.T) {
	k := NewKeywordCache("/src/project", discardLogger())
	v, ok := k.Lookup(KeywordRoot)
	if !ok || v != "/src/project" {
		t.Errorf("Lookup(ROOT) = %v, %v", v, ok)
	}
	if _, ok := k.Lookup("HOME"); ok {
		t.Error("HOME is not a keyword")
	}
	if !IsKeyword("GITIGNORE_CONTENTS") || IsKeyword("gitignore_contents") {
		t.Error("keywords are case sensitive")
	}
}

func TestKeywordCache_GitignoreMissing(t *testing.T) {
	logger, buf := bufferLogger()
	k := NewKeywordCache(t.TempDir(), logger)

	if got := k.Gitignore(); len(got) != 0 {
		t.Errorf("expected no lines, got %q", got)
	}
	k.Gitignore()
	if n := strings.Count(buf.String(), "no .gitignore found"); n != 1 {
		t.Errorf("expected one warning, got %d:\n%s", n, buf.String())
	}
}

func TestKeywordCache_GitignoreMemoized(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".gitignore")
	if err := os.WriteFile(path, []byte("# build output\nbuild/\n\n*.pyc\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	k := NewKeywordCache(root, discardLogger())

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = k.Gitignore()
		}(i)
	}
	wg.Wait()

	want := []string{"# build output", "build/", "", "*.pyc"}
	for _, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("gitignore mismatch (-want +got):\n%s", diff)
		}
	}

	// Later edits are not observed within the same run.
	if err := os.WriteFile(path, []byte("other\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, k.Gitignore()); diff != "" {
		t.Errorf("cache was not reused (-want +got):\n%s", diff)
	}

	// Callers get their own copy.
	lines := k.Gitignore()
	lines[0] = "mutated"
	if k.Gitignore()[0] != "# build output" {
		t.Error("cached lines were mutated through a returned slice")
	}
}
