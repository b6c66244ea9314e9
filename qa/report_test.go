// report_test.go: Tests for PASS/FAIL reporting
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

func TestReport_Pass(t *testing.T) {
	logger, buf := bufferLogger()
	r := NewReport()
	r.Checked()
	r.Checked()
	r.Add("ignored.txt")

	if code := r.Finish(logger); code != 0 {
		t.Errorf("Finish = %d, want 0", code)
	}
	if !strings.Contains(buf.String(), "PASS (2 files checked)") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestReport_Fail(t *testing.T) {
	logger, buf := bufferLogger()
	r := NewReport()
	r.Add("b.sh", "SC2086 quote this")
	r.Add("a.sh", "missing header")
	r.Add("b.sh", "SC2034 unused")

	if code := r.Finish(logger); code != 1 {
		t.Errorf("Finish = %d, want 1", code)
	}
	want := []string{"b.sh:SC2086 quote this", "b.sh:SC2034 unused", "a.sh:missing header"}
	if diff := cmp.Diff(want, r.Lines()); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
	out := buf.String()
	if !strings.Contains(out, "msg=FAIL") || !strings.Contains(out, "a.sh:missing header") {
		t.Errorf("unexpected output %q", out)
	}
	if diff := cmp.Diff([]string{"missing header"}, r.Errors("a.sh")); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestFail(t *testing.T) {
	logger, buf := bufferLogger()
	if Fail(logger, "Could not find shellcheck executable") != 1 {
		t.Error("Fail must return 1")
	}
	if !strings.Contains(buf.String(), "Could not find shellcheck executable") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
