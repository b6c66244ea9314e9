// params.go: Resolved check parameters
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ProjectRootParam is injected into every check's parameters.
const ProjectRootParam = "project_root"

// Params holds the resolved parameters of one check. Scalar settings map to
// string, list settings to []string and pattern settings to *PatternSet.
// Optional settings with no value are absent.
type Params map[string]any

// Has reports whether name has a value.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns a scalar parameter, or "" when absent.
func (p Params) String(name string) string {
	switch v := p[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns a list parameter.
func (p Params) Strings(name string) []string {
	switch v := p[name].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case string:
		return []string{v}
	case *PatternSet:
		return v.Sources()
	}
	return nil
}

// Int returns a scalar parameter parsed as an integer, or def when absent
// or malformed.
func (p Params) Int(name string, def int) int {
	n, err := strconv.Atoi(p.String(name))
	if err != nil {
		return def
	}
	return n
}

// Patterns returns a pattern parameter. The result is never nil.
func (p Params) Patterns(name string) *PatternSet {
	if ps, ok := p[name].(*PatternSet); ok && ps != nil {
		return ps
	}
	return &PatternSet{}
}

// ProjectRoot returns the injected project root.
func (p Params) ProjectRoot() string {
	return p.String(ProjectRootParam)
}

// Path returns a scalar parameter as a path, resolving relative values
// against the project root. It returns "" when absent.
func (p Params) Path(name string) string {
	v := p.String(name)
	if v == "" {
		return ""
	}
	return p.Abs(v)
}

// Abs resolves path against the project root unless it is absolute.
func (p Params) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.ProjectRoot(), path)
}

// Rel returns path relative to the project root for reporting, or path
// itself when it is not below the root.
func (p Params) Rel(path string) string {
	rel, err := filepath.Rel(p.ProjectRoot(), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
