// report.go: Per-file error collection and PASS/FAIL reporting
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"fmt"
	"log/slog"
	"sync"
)

// Report collects per-file errors for one check run. It is safe for
// concurrent use.
type Report struct {
	mu      sync.Mutex
	order   []string
	errors  map[string][]string
	checked int
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{errors: make(map[string][]string)}
}

// Add records msgs against file. Files are reported in the order they
// first failed.
func (r *Report) Add(file string, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.errors[file]; !seen {
		r.order = append(r.order, file)
	}
	r.errors[file] = append(r.errors[file], msgs...)
}

// Checked counts one more checked file.
func (r *Report) Checked() {
	r.mu.Lock()
	r.checked++
	r.mu.Unlock()
}

// NumChecked returns the number of files counted by Checked.
func (r *Report) NumChecked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checked
}

// Failed reports whether any error was recorded.
func (r *Report) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order) > 0
}

// Errors returns the recorded errors of file.
func (r *Report) Errors(file string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors[file]...)
}

// Lines returns "file:error" lines in report order.
func (r *Report) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.order {
		for _, msg := range r.errors[f] {
			out = append(out, f+":"+msg)
		}
	}
	return out
}

// Finish logs "PASS (N files checked)" or "FAIL" followed by one error per
// line, and returns the check result.
func (r *Report) Finish(logger *slog.Logger) int {
	if !r.Failed() {
		logger.Info(fmt.Sprintf("PASS (%d files checked)", r.NumChecked()))
		return 0
	}
	logger.Error("FAIL")
	for _, line := range r.Lines() {
		logger.Error(line)
	}
	return 1
}

// Fail logs "FAIL" followed by msg and returns 1.
func Fail(logger *slog.Logger, msg string) int {
	logger.Error("FAIL")
	logger.Error(msg)
	return 1
}
