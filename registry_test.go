// registry_test.go: Tests for the settings registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// testRegistry mirrors the shape of the runner registry: templates that
// reference earlier settings, an internal setting and a positional list.
func testRegistry(t *testing.T) *Registry {
	t.Helper()
	root := t.TempDir()
	reg, err := NewRegistry(discardLogger(),
		Setting{Name: "project_root", Default: root, Resolve: Path, Help: "Project root"},
		Setting{Name: "out_dir", Default: "{project_root}/build", Resolve: Path, Help: "Output dir (default: {out_dir})"},
		Setting{Name: "sstate_dir", Default: "{out_dir}/sstate", Resolve: Path},
		Setting{Name: "deploy", Default: false, Resolve: Bool},
		Setting{Name: "j", Default: "4", Resolve: PositiveInt},
		Setting{Name: "engine_arguments", Default: nil},
		Setting{Name: "kasfile", Positional: true, List: true, Resolve: SingleValue},
		Setting{Name: "build_dir", Internal: true, Resolve: func(cfg *ResolvedConfig, _ any) (any, error) {
			return ExpandTemplate(cfg, "{out_dir}/{kasfile}")
		}},
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return reg
}

func TestRegistry_Add(t *testing.T) {
	t.Run("DuplicateName", func(t *testing.T) {
		_, err := NewRegistry(discardLogger(),
			Setting{Name: "a"},
			Setting{Name: "a"},
		)
		if err == nil {
			t.Fatal("expected duplicate setting to be rejected")
		}
		if got := ErrorCode(err); got != ErrCodeDuplicateSetting {
			t.Errorf("expected %s, got %s", ErrCodeDuplicateSetting, got)
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		reg := MustRegistry(nil)
		if err := reg.Add(Setting{Name: "  "}); ErrorCode(err) != ErrCodeInvalidSetting {
			t.Errorf("expected %s, got %v", ErrCodeInvalidSetting, err)
		}
	})

	t.Run("MustRegistryPanics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected MustRegistry to panic on duplicates")
			}
		}()
		MustRegistry(nil, Setting{Name: "x"}, Setting{Name: "x"})
	})

	t.Run("DeclarationOrder", func(t *testing.T) {
		reg := testRegistry(t)
		var names []string
		for _, s := range reg.Settings() {
			names = append(names, s.Name)
		}
		want := []string{"project_root", "out_dir", "sstate_dir", "deploy", "j", "engine_arguments", "kasfile", "build_dir"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("settings order mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRegistry_Help(t *testing.T) {
	reg := MustRegistry(nil,
		Setting{Name: "out_dir", Default: "/tmp/out", Help: "Output (default: {out_dir})"},
		Setting{Name: "log", Help: "Writes to {out_dir}/log, see {nonexistent}"},
		Setting{Name: "list", Default: []string{"a", "b"}, Help: "Values {list}"},
	)

	tests := map[string]string{
		"out_dir": "Output (default: /tmp/out)",
		"log":     "Writes to /tmp/out/log, see {nonexistent}",
		"list":    "Values a,b",
	}
	for name, want := range tests {
		if got := reg.Help(name); got != want {
			t.Errorf("Help(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestRegistry_ValidateOverrides(t *testing.T) {
	logger, buf := bufferLogger()
	reg := MustRegistry(logger,
		Setting{Name: "a", Default: "x"},
		Setting{Name: "secret", Internal: true},
	)

	if !reg.ValidateOverrides(map[string]any{"a": "y"}) {
		t.Error("expected known key to validate")
	}

	if reg.ValidateOverrides(map[string]any{"a": "y", "bogus": 1, "secret": 2}) {
		t.Fatal("expected unknown and internal keys to fail validation")
	}
	out := buf.String()
	if !strings.Contains(out, "bogus") || !strings.Contains(out, "secret") {
		t.Errorf("expected both violations to be logged, got:\n%s", out)
	}

	err := reg.CheckOverrides(map[string]any{"bogus": 1, "secret": 2})
	if !HasCode(err, ErrCodeUnknownSetting) || !HasCode(err, ErrCodeInternalSetting) {
		t.Errorf("expected joined error with both codes, got %v", err)
	}
}

func TestRegistry_FilterKnown(t *testing.T) {
	reg := testRegistry(t)
	got := reg.FilterKnown(map[string]any{
		"out_dir":   "/x",
		"build_dir": "/y",
		"config":    "ci.yml",
	})
	if diff := cmp.Diff(map[string]any{"out_dir": "/x"}, got); diff != "" {
		t.Errorf("FilterKnown mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_FlagSpecs(t *testing.T) {
	reg := testRegistry(t)
	specs := reg.FlagSpecs()

	byName := make(map[string]FlagSpec)
	for _, s := range specs {
		byName[s.Name] = s
	}
	if _, ok := byName["build_dir"]; ok {
		t.Error("internal setting must not produce a flag")
	}
	if !byName["deploy"].Bool {
		t.Error("deploy should be a bool flag")
	}
	if k := byName["kasfile"]; !k.List || !k.Positional {
		t.Errorf("kasfile should be a positional list, got %+v", k)
	}
	if len(specs) != reg.Len()-1 {
		t.Errorf("expected %d specs, got %d", reg.Len()-1, len(specs))
	}
}
