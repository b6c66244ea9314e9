// helpers_test.go: Shared fixtures for the check tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agilira/daedalus/qa"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bufferLogger() (*slog.Logger, *lockedBuffer) {
	buf := &lockedBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// walkParams returns parameters walking root with the given exclusions.
func walkParams(t *testing.T, root string, exclude ...string) qa.Params {
	t.Helper()
	set, err := qa.CompilePatterns(root, exclude, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	return qa.Params{
		qa.ProjectRootParam:  root,
		ParamPaths:           []string{root},
		ParamExcludePatterns: set,
	}
}

// fakeCommand records invocations and answers from a table keyed by the
// base name of the last argument.
type fakeCommand struct {
	mu      sync.Mutex
	calls   [][]string
	outputs map[string]string
	codes   map[string]int
}

func (f *fakeCommand) run(_ context.Context, _ string, name string, args ...string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	key := ""
	for _, a := range args {
		if strings.HasPrefix(a, "/") {
			key = filepath.Base(a)
			break
		}
	}
	return f.outputs[key], f.codes[key], nil
}

func findAs(path string) func(*slog.Logger, string) string {
	return func(*slog.Logger, string) string { return path }
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func newTextLogger(w *lockedBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
