// integration_test.go: Tests for the flash-flags binding
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"testing"

	flashflags "github.com/agilira/flash-flags"
	"github.com/google/go-cmp/cmp"
)

func TestBindFlags_RoundTrip(t *testing.T) {
	reg := testRegistry(t)
	specs := reg.FlagSpecs()

	fs := flashflags.New("test")
	BindFlags(fs, specs)
	if err := fs.Parse([]string{"--deploy", "--out_dir=/tmp/out", "--j=6"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := FlagValues(fs, specs)
	want := map[string]any{
		"deploy":  true,
		"out_dir": "/tmp/out",
		"j":       "6",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FlagValues mismatch (-want +got):\n%s", diff)
	}
}

func TestBindFlags_NegatedBool(t *testing.T) {
	reg := MustRegistry(discardLogger(),
		Setting{Name: "deploy", Default: true, Resolve: Bool},
		Setting{Name: "layers", List: true},
	)
	specs := reg.FlagSpecs()

	fs := flashflags.New("test")
	BindFlags(fs, specs)
	if err := fs.Parse([]string{"--no_deploy", "--layers=meta-a, meta-b,"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := FlagValues(fs, specs)
	want := map[string]any{
		"deploy": false,
		"layers": []string{"meta-a", "meta-b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FlagValues mismatch (-want +got):\n%s", diff)
	}
}

func TestBindFlags_UnsetFlagsAreAbsent(t *testing.T) {
	reg := testRegistry(t)
	specs := reg.FlagSpecs()

	fs := flashflags.New("test")
	BindFlags(fs, specs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := FlagValues(fs, specs); len(got) != 0 {
		t.Errorf("expected no values, got %v", got)
	}
}

func TestHelpRequested(t *testing.T) {
	if !HelpRequested([]string{"--out_dir=x", "-h"}) {
		t.Error("-h not detected")
	}
	if HelpRequested([]string{"--helper"}) {
		t.Error("--helper is not a help flag")
	}
}
