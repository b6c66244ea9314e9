// tool_test.go: Tests for the linter backed checks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/agilira/daedalus/qa"
	"github.com/google/go-cmp/cmp"
)

// newToolCheck builds a check from plugin with injected execution.
func newToolCheck(t *testing.T, plugin qa.Plugin, params qa.Params, fake *fakeCommand) (*toolCheck, *lockedBuffer) {
	t.Helper()
	logger, buf := bufferLogger()
	check, ok := plugin.New(logger, params).(*toolCheck)
	if !ok {
		t.Fatalf("%s does not build a tool check", plugin.Name())
	}
	check.exec = fake.run
	check.find = func(_ *slog.Logger, name string) string { return "/venv/bin/" + name }
	return check, buf
}

func TestStripFilename(t *testing.T) {
	out := "/src/run.sh:3:1: warning: foo is referenced but not assigned. [SC2154]\n" +
		"\n" +
		"/src/run.sh:7:5: note: Double quote to prevent globbing. [SC2086]\n" +
		"unrelated line\n"
	want := []string{
		"3:1: warning: foo is referenced but not assigned. [SC2154]",
		"7:5: note: Double quote to prevent globbing. [SC2086]",
		"unrelated line",
	}
	if diff := cmp.Diff(want, stripFilename("/src/run.sh", out)); diff != "" {
		t.Errorf("stripFilename mismatch (-want +got):\n%s", diff)
	}
}

func TestDropPathLines(t *testing.T) {
	out := "/src/a.yml\n  1:1       warning  missing document start \"---\"  (document-start)\n  4:81      error    line too long (82 > 80 characters)  (line-length)\n\n"
	want := []string{
		"1:1       warning  missing document start \"---\"  (document-start)",
		"4:81      error    line too long (82 > 80 characters)  (line-length)",
	}
	if diff := cmp.Diff(want, dropPathLines("/src/a.yml", out)); diff != "" {
		t.Errorf("dropPathLines mismatch (-want +got):\n%s", diff)
	}
}

func TestShellCheck(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad.sh", "#!/bin/bash\necho $foo\n")
	writeFile(t, root, "good.sh", "#!/bin/sh\necho ok\n")
	writeFile(t, root, "silent.sh", "#!/bin/sh\nexit 0\n")
	writeFile(t, root, "notes.txt", "not a script\n")

	fake := &fakeCommand{
		outputs: map[string]string{"bad.sh": root + "/bad.sh:2:6: warning: foo is referenced but not assigned. [SC2154]\n"},
		codes:   map[string]int{"bad.sh": 1, "silent.sh": 4},
	}
	check, buf := newToolCheck(t, Shell(), walkParams(t, root), fake)
	check.params[ParamFileTypes] = []string{"shell script", "bash script"}

	if code := check.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if len(fake.calls) != 3 {
		t.Errorf("expected shellcheck on the 3 scripts only, got %q", fake.calls)
	}
	for _, call := range fake.calls {
		if call[0] != "/venv/bin/shellcheck" || call[1] != "-f" || call[2] != "gcc" {
			t.Errorf("unexpected command %q", call)
		}
	}
	assertContains(t, buf.String(),
		"bad.sh:2:6: warning: foo is referenced but not assigned. [SC2154]",
		"silent.sh:Unknown error (rc = 4)",
	)
	if strings.Contains(buf.String(), "good.sh:") {
		t.Errorf("good.sh should pass:\n%s", buf.String())
	}
}

func TestPythonCheck_Pass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tool.py", "#!/usr/bin/env python3\nprint('ok')\n")
	writeFile(t, root, "lib/mod.py", "import os\n")
	writeFile(t, root, "run.sh", "#!/bin/sh\n")

	fake := &fakeCommand{}
	check, buf := newToolCheck(t, Python(), walkParams(t, root), fake)
	check.params[ParamFileTypes] = []string{"Python script"}

	if code := check.Run(context.Background()); code != 0 {
		t.Fatalf("exit code = %d, want 0:\n%s", code, buf.String())
	}
	assertContains(t, buf.String(), "PASS (2 files checked)")
}

func TestYAMLCheck(t *testing.T) {
	root := t.TempDir()
	bad := writeFile(t, root, "ci/bad.yml", "a: 1\n")
	writeFile(t, root, "ci/good.yaml", "---\na: 1\n")
	writeFile(t, root, "ci/readme.md", "# not yaml\n")

	include, err := qa.CompilePatterns(root, []string{"*.yml", "*.yaml"}, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	fake := &fakeCommand{
		outputs: map[string]string{"bad.yml": bad + "\n  1:1  warning  missing document start \"---\"  (document-start)\n"},
		codes:   map[string]int{"bad.yml": 1},
	}
	params := walkParams(t, root)
	params[ParamIncludePatterns] = include
	params[ParamYamllintArgs] = "-d relaxed --strict"
	check, buf := newToolCheck(t, YAML(), params, fake)

	if code := check.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected yamllint on the 2 YAML files, got %q", fake.calls)
	}
	if diff := cmp.Diff([]string{"-d", "relaxed", "--strict"}, fake.calls[0][2:]); diff != "" {
		t.Errorf("extra arguments mismatch (-want +got):\n%s", diff)
	}
	assertContains(t, buf.String(), "bad.yml:1:1  warning  missing document start")
}

func TestToolCheck_MissingExecutable(t *testing.T) {
	check, buf := newToolCheck(t, Shell(), walkParams(t, t.TempDir()), &fakeCommand{})
	check.find = findAs("")
	if code := check.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	assertContains(t, buf.String(), "FAIL", "Could not find shellcheck executable")
}
