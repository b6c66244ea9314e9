// helpers_test.go: Shared test fixtures for the qa package
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agilira/daedalus"
)

// lockedBuffer is a bytes.Buffer safe for concurrent writers.
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

// fakePlugin is a configurable Plugin for dispatcher tests.
type fakePlugin struct {
	name     string
	settings []CheckSetting
	deps     []string
	run      func(ctx context.Context, params Params) int

	mu     sync.Mutex
	params []Params
}

func (p *fakePlugin) Name() string             { return p.name }
func (p *fakePlugin) Settings() []CheckSetting { return p.settings }
func (p *fakePlugin) Dependencies() []string   { return p.deps }

func (p *fakePlugin) New(_ *slog.Logger, params Params) Check {
	p.mu.Lock()
	p.params = append(p.params, params)
	p.mu.Unlock()
	return CheckFunc(func(ctx context.Context) int {
		if p.run == nil {
			return 0
		}
		return p.run(ctx, params)
	})
}

func (p *fakePlugin) instances() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.params)
}

func passing(name string) *fakePlugin {
	return &fakePlugin{name: name}
}

func failing(name string, code int) *fakePlugin {
	return &fakePlugin{name: name, run: func(context.Context, Params) int { return code }}
}

func testResolver(t *testing.T, root string, cfg *FileConfig, cli map[string]string) *Resolver {
	t.Helper()
	return &Resolver{
		Config:   cfg,
		CLI:      cli,
		Keywords: daedalus.NewKeywordCache(root, discardLogger()),
		Logger:   discardLogger(),
	}
}

func parseConfig(t *testing.T, content string) *FileConfig {
	t.Helper()
	cfg, err := ParseFileConfig("qa-checks_config.yml", []byte(content))
	if err != nil {
		t.Fatalf("ParseFileConfig: %v", err)
	}
	return cfg
}
