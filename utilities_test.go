// utilities_test.go: Tests for value helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToStrings(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"Nil", nil, nil},
		{"String", "a", []string{"a"}},
		{"Strings", []string{"a", "b"}, []string{"a", "b"}},
		{"Mixed", []any{"a", 2, nil, true}, []string{"a", "2", "", "true"}},
		{"Scalar", 3, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, toStrings(tt.in)); diff != "" {
				t.Errorf("toStrings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCopyMap_DoesNotAlias(t *testing.T) {
	list := []string{"a"}
	orig := map[string]any{"l": list, "n": 1}
	cp := copyMap(orig)
	list[0] = "changed"
	if cp["l"].([]string)[0] != "a" {
		t.Error("copy aliases the original slice")
	}
	if copyMap(nil) != nil {
		t.Error("copy of nil map should be nil")
	}
}

func TestIsFalsy(t *testing.T) {
	falsy := []any{nil, "", []string{}, []any{}, 0, int64(0), 0.0}
	for _, v := range falsy {
		if !isFalsy(v) {
			t.Errorf("%#v should be falsy", v)
		}
	}
	truthy := []any{false, true, "x", []string{""}, 1}
	for _, v := range truthy {
		if isFalsy(v) {
			t.Errorf("%#v should not be falsy", v)
		}
	}
}

func TestSplitList(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b c", "d"}, splitList(" a,b c,,d ,")); diff != "" {
		t.Errorf("splitList mismatch (-want +got):\n%s", diff)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %q", got)
	}
}
