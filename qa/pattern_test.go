// pattern_test.go: Tests for gitignore-style pattern matching
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPatternSet_Match(t *testing.T) {
	const root = "/project"

	tests := []struct {
		name    string
		pattern string
		match   []string
		noMatch []string
	}{
		{
			name:    "extension at any depth",
			pattern: "*.log",
			match:   []string{"/project/a.log", "/project/x/y/b.log", "/project/logs.log/inner.txt"},
			noMatch: []string{"/project/a.logx", "/project/a.txt", "/other/a.log"},
		},
		{
			name:    "anchored directory",
			pattern: "/build",
			match:   []string{"/project/build", "/project/build/tmp/x.o"},
			noMatch: []string{"/project/src/build", "/project/builder"},
		},
		{
			name:    "trailing slash",
			pattern: "docs/",
			match:   []string{"/project/docs", "/project/docs/index.rst", "/project/a/docs/x.md"},
			noMatch: []string{"/project/documents/x.md"},
		},
		{
			name:    "trailing slash is stripped so files match too",
			pattern: "notes.txt/",
			match:   []string{"/project/notes.txt", "/project/a/notes.txt"},
			noMatch: []string{"/project/notes.txt.bak"},
		},
		{
			name:    "question mark",
			pattern: "file?.txt",
			match:   []string{"/project/file1.txt"},
			noMatch: []string{"/project/file12.txt", "/project/file/.txt"},
		},
		{
			name:    "star does not cross directories",
			pattern: "/src/*.go",
			match:   []string{"/project/src/main.go"},
			noMatch: []string{"/project/src/pkg/main.go"},
		},
		{
			name:    "double star",
			pattern: "/src/**/*.go",
			match:   []string{"/project/src/pkg/main.go"},
		},
		{
			name:    "braces are literal",
			pattern: "{a}.txt",
			match:   []string{"/project/{a}.txt"},
			noMatch: []string{"/project/a.txt"},
		},
		{
			name:    "dot is literal",
			pattern: "*.git",
			match:   []string{"/project/.git", "/project/.git/config"},
			noMatch: []string{"/project/xgit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := CompilePatterns(root, []string{tt.pattern}, discardLogger())
			if err != nil {
				t.Fatalf("CompilePatterns(%q): %v", tt.pattern, err)
			}
			for _, p := range tt.match {
				if !set.Match(p) {
					t.Errorf("%q should match %q", tt.pattern, p)
				}
			}
			for _, p := range tt.noMatch {
				if set.Match(p) {
					t.Errorf("%q should not match %q", tt.pattern, p)
				}
			}
		})
	}
}

func TestCompilePatterns_SkipsBlankAndComments(t *testing.T) {
	set, err := CompilePatterns("/project", []string{"", "   ", "# comment", " *.tmp ", "/out/"}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"*.tmp", "/out/"}, set.Sources()); diff != "" {
		t.Errorf("Sources() mismatch (-want +got):\n%s", diff)
	}
	if !set.Match("/project/out/file") {
		t.Error("/out/ should exclude files under /project/out")
	}
}

func TestCompilePatterns_NegationIsLiteral(t *testing.T) {
	logger, buf := bufferLogger()
	set, err := CompilePatterns("/project", []string{"!keep.txt"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "negation") {
		t.Errorf("expected a warning about negation, got %q", buf.String())
	}
	if !set.Match("/project/!keep.txt") {
		t.Error("negated pattern should match literally")
	}
	if set.Match("/project/other.txt") {
		t.Error("negated pattern must not invert the match")
	}
}

func TestPatternSet_ZeroValue(t *testing.T) {
	var nilSet *PatternSet
	if nilSet.Match("/anything") || nilSet.Len() != 0 || nilSet.Sources() != nil {
		t.Error("nil set should match nothing")
	}
	if (&PatternSet{}).Match("/anything") {
		t.Error("empty set should match nothing")
	}
}
