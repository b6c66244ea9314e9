// utilities.go: Value helpers shared by the configuration layers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"fmt"
	"strings"
)

// copyMap returns a shallow copy of original with slice values duplicated.
func copyMap(original map[string]any) map[string]any {
	if original == nil {
		return nil
	}
	out := make(map[string]any, len(original))
	for k, v := range original {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue duplicates slices so callers cannot alias stored values.
func copyValue(v any) any {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		return toStrings(t)
	default:
		return v
	}
}

// toStrings normalizes the list shapes produced by the parsers and flag
// layers into a []string.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				out = append(out, "")
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

// isList reports whether v has one of the list shapes.
func isList(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	}
	return false
}

// isScalar reports whether v is a single string, boolean or number.
func isScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// isFalsy reports whether a command line value should be treated as "not
// given". Booleans are never falsy here: an explicit false is meaningful.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return false
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}

// splitList splits a comma separated command line or environment value.
// Empty elements are dropped.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
