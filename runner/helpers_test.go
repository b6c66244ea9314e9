// helpers_test.go: Shared fixtures for the runner tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agilira/daedalus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

func canonical(t *testing.T, p string) string {
	t.Helper()
	c, err := daedalus.CanonicalPath(p)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// resolve builds a resolved runner config from overrides.
func resolve(t *testing.T, values map[string]any) *daedalus.ResolvedConfig {
	t.Helper()
	reg, err := NewRegistry(discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	cfg := reg.NewConfig()
	if err := cfg.Override(values); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Resolve(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// projectWithKas creates a project root with the given kas files under the
// default kas_dir.
func projectWithKas(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		writeFile(t, filepath.Join(root, "meta-ewaol-config", "kas"), f, "header:\n  version: 11\n")
	}
	return canonical(t, root)
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls [][]string
	code  int
	err   error
	// block makes runs of the build command wait for the context.
	block bool
	out   string
}

func (f *fakeExecutor) Run(ctx context.Context, argv []string, out io.Writer) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), argv...))
	f.mu.Unlock()
	if len(argv) > 1 && argv[1] == "stop" {
		return 0, nil
	}
	if f.out != "" {
		_, _ = io.WriteString(out, f.out)
	}
	if f.block {
		// The build command is detached from cancellation; wait for the
		// stop command instead.
		for {
			f.mu.Lock()
			stopped := false
			for _, c := range f.calls {
				if len(c) > 1 && c[1] == "stop" {
					stopped = true
				}
			}
			f.mu.Unlock()
			if stopped {
				return 130, nil
			}
			if ctx.Err() != nil {
				return -1, ctx.Err()
			}
			time.Sleep(time.Millisecond)
		}
	}
	return f.code, f.err
}

func (f *fakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func slogTo(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
