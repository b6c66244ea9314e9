// checks_test.go: Tests for the check set
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"testing"

	"github.com/agilira/daedalus/qa"
	"github.com/google/go-cmp/cmp"
)

func TestRegistry(t *testing.T) {
	reg := Registry()
	want := []string{"commit_msg", "header", "inclusivity", "spell", "shell", "python", "yaml", "layer", "doc_build"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	flags := map[string]bool{}
	for _, spec := range reg.FlagSpecs() {
		flags[spec.Name] = spec.List
	}
	for name, list := range map[string]bool{
		"yaml_yamllint_args":                      false,
		"yaml_include_patterns":                   true,
		"layer_kas_configs":                       true,
		"commit_msg_title_length":                 false,
		"inclusivity_non_inclusive_language_file": false,
	} {
		got, ok := flags[name]
		if !ok {
			t.Errorf("missing flag %s", name)
			continue
		}
		if got != list {
			t.Errorf("flag %s list = %v, want %v", name, got, list)
		}
	}
}

func TestDependencies(t *testing.T) {
	got := map[string][]string{}
	for _, p := range All() {
		if deps := p.Dependencies(); len(deps) > 0 {
			got[p.Name()] = deps
		}
	}
	want := map[string][]string{
		"shell":  {"shellcheck-py"},
		"python": {"pycodestyle"},
		"yaml":   {"yamllint==1.26.3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkPaths_NotFound(t *testing.T) {
	root := t.TempDir()
	params := walkParams(t, root)
	params[ParamPaths] = []string{"missing", root}
	writeFile(t, root, "a.txt", "x")

	report := qa.NewReport()
	var visited []string
	walkPaths(params, report, func(path string) { visited = append(visited, params.Rel(path)) })

	if diff := cmp.Diff([]string{"a.txt"}, visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{root + "/missing:" + notFound}, report.Lines()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}
