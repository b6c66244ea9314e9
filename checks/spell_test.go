// spell_test.go: Tests for the spell check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMisspelt(t *testing.T) {
	dict := dictionary{}
	for _, w := range []string{"the", "quick", "brown", "fox", "Yocto", "don't"} {
		dict[w] = struct{}{}
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"AllKnown", "The quick brown fox\n", nil},
		{"CaseFallback", "QUICK Fox\n", nil},
		{"ProperNounCase", "yocto\n", []string{"1:yocto"}},
		{"Apostrophe", "don't\n", nil},
		{"Unknown", "the quikc fox\nthe Quikc\n", []string{"1,2:quikc"}},
		{"SingleLettersIgnored", "a b c\n", nil},
		{"DigitsSplit", "fox123 brwn\n", []string{"1:brwn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, misspelt(tt.text, dict)); diff != "" {
				t.Errorf("misspelt mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpellCheck(t *testing.T) {
	root := t.TempDir()
	words := writeFile(t, t.TempDir(), "words", "hello\nworld\n")
	writeFile(t, root, "dictionary.txt", "daedalus\n")
	writeFile(t, root, "docs/good.md", "Hello world, daedalus.\n")
	writeFile(t, root, "docs/bad.md", "Hello wrold.\n")

	params := walkParams(t, root, "dictionary.txt")
	params[ParamWordLists] = []string{words}
	params[ParamDictPath] = "dictionary.txt"

	logger, buf := bufferLogger()
	if code := (&spellCheck{logger: logger, params: params}).Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	assertContains(t, buf.String(), "bad.md:1:wrold")
	if strings.Contains(buf.String(), "good.md:") {
		t.Errorf("good.md should pass:\n%s", buf.String())
	}
}

func TestSpellCheck_NoDictionary(t *testing.T) {
	root := t.TempDir()
	params := walkParams(t, root)
	params[ParamWordLists] = []string{"missing-words"}

	logger, buf := bufferLogger()
	if code := (&spellCheck{logger: logger, params: params}).Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	assertContains(t, buf.String(), "Could not load the word list", "Failed to load any dictionary words")
}
