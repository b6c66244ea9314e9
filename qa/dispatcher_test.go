// dispatcher_test.go: Tests for running checks and summarizing results
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agilira/daedalus"
	"github.com/agilira/go-errors"
	"github.com/google/go-cmp/cmp"
)

func newDispatcher(t *testing.T, plugins ...Plugin) (*Dispatcher, *lockedBuffer) {
	t.Helper()
	logger, buf := bufferLogger()
	r := testResolver(t, t.TempDir(), nil, nil)
	r.Logger = logger
	return &Dispatcher{Registry: MustRegistry(plugins...), Resolver: r, Logger: logger}, buf
}

func TestDispatcher_PassAndFail(t *testing.T) {
	d, buf := newDispatcher(t, passing("A"), failing("B", 1))

	summary, err := d.Run(context.Background(), []string{"all"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", summary.ExitCode)
	}
	want := "Ran 2 checks of which 1 failed (B). Exit code: 1."
	if got := summary.String(); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	if !strings.Contains(buf.String(), want) {
		t.Errorf("summary not logged: %q", buf.String())
	}
}

func TestDispatcher_AllPass(t *testing.T) {
	d, _ := newDispatcher(t, passing("A"), passing("B"))
	summary, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := summary.String(), "Ran 2 checks of which 0 failed. Exit code: 0."; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestDispatcher_ExitCodeIsOr(t *testing.T) {
	d, _ := newDispatcher(t, failing("c", 2), failing("b", 1), passing("a"))
	summary, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", summary.ExitCode)
	}
	if diff := cmp.Diff([]string{"b", "c"}, summary.Failed()); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcher_PanicIsOneFailure(t *testing.T) {
	boom := &fakePlugin{name: "boom", run: func(context.Context, Params) int { panic("kaboom") }}
	d, buf := newDispatcher(t, passing("ok"), boom)

	summary, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := summary.String(), "Ran 2 checks of which 1 failed (boom). Exit code: 1."; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	out := buf.String()
	if !strings.Contains(out, "kaboom") || !strings.Contains(out, "stack=") {
		t.Errorf("panic not logged with a stack: %q", out)
	}
	for _, r := range summary.Results {
		if r.Name == "boom" && !r.Panicked {
			t.Error("boom should be marked as panicked")
		}
	}
}

func TestDispatcher_RequiredMissingDropped(t *testing.T) {
	needy := &fakePlugin{name: "layer", settings: []CheckSetting{{Name: "kas_configs", List: true, Required: true}}}
	d, _ := newDispatcher(t, passing("header"), needy)

	summary, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if needy.instances() != 0 {
		t.Error("dropped check must not be instantiated")
	}
	if diff := cmp.Diff([]string{"layer"}, summary.Dropped); diff != "" {
		t.Errorf("Dropped mismatch (-want +got):\n%s", diff)
	}
	if got, want := summary.String(), "Ran 1 checks of which 0 failed. Exit code: 0."; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestDispatcher_SkippedAreFailures(t *testing.T) {
	shell := passing("shell")
	d, _ := newDispatcher(t, passing("header"), shell)
	var setupSaw []string
	d.Setup = func(_ context.Context, ready []Prepared) ([]string, error) {
		for _, prep := range ready {
			setupSaw = append(setupSaw, prep.Plugin.Name())
		}
		return []string{"shell"}, nil
	}

	summary, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if shell.instances() != 0 {
		t.Error("skipped check must not be instantiated")
	}
	if diff := cmp.Diff([]string{"header", "shell"}, setupSaw); diff != "" {
		t.Errorf("Setup input mismatch (-want +got):\n%s", diff)
	}
	if got, want := summary.String(), "Ran 2 checks of which 1 failed (shell). Exit code: 1."; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestDispatcher_SetupErrorAbortsRun(t *testing.T) {
	header := passing("header")
	d, _ := newDispatcher(t, header)
	d.Setup = func(context.Context, []Prepared) ([]string, error) {
		return nil, errors.New(ErrCodeDependency, "no python")
	}

	summary, err := d.Run(context.Background(), nil)
	if daedalus.ErrorCode(err) != ErrCodeDependency {
		t.Errorf("expected %s, got %v", ErrCodeDependency, err)
	}
	if summary.ExitCode == 0 || header.instances() != 0 {
		t.Errorf("no check may run after a failed setup: %+v", summary)
	}
}

func TestDispatcher_NoChecks(t *testing.T) {
	needy := &fakePlugin{name: "layer", settings: []CheckSetting{{Name: "kas_configs", Required: true}}}
	d, buf := newDispatcher(t, needy)

	summary, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.ExitCode != 0 || len(summary.Results) != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if !strings.Contains(buf.String(), "Found no requested checks to run.") {
		t.Errorf("expected the no-checks message, got %q", buf.String())
	}
}

func TestDispatcher_UnknownCheck(t *testing.T) {
	d, _ := newDispatcher(t, passing("header"))
	summary, err := d.Run(context.Background(), []string{"nope"})
	if daedalus.ErrorCode(err) != ErrCodeUnknownCheck {
		t.Errorf("expected %s, got %v", ErrCodeUnknownCheck, err)
	}
	if summary.ExitCode == 0 {
		t.Error("unknown check must fail the run")
	}
}

func TestDispatcher_DefaultExcludeFromConfig(t *testing.T) {
	layer := passing("layer")
	d, _ := newDispatcher(t, passing("header"), layer)
	d.Resolver.Config = parseConfig(t, "default_exclude: [layer]\n")

	summary, err := d.Run(context.Background(), []string{"default"})
	if err != nil {
		t.Fatal(err)
	}
	if layer.instances() != 0 || len(summary.Results) != 1 {
		t.Errorf("layer should not run by default: %+v", summary)
	}
}

func TestDispatcher_JobsLimit(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(name string) *fakePlugin {
		return &fakePlugin{name: name, run: func(context.Context, Params) int {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return 0
		}}
	}
	d, _ := newDispatcher(t, slow("a"), slow("b"), slow("c"), slow("d"))
	d.Jobs = 2

	if _, err := d.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestDispatcher_ParamsReachChecks(t *testing.T) {
	header := &fakePlugin{name: "header", settings: []CheckSetting{{Name: "paths", List: true, Default: []string{"ROOT"}}}}
	d, _ := newDispatcher(t, header)

	if _, err := d.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if header.instances() != 1 {
		t.Fatalf("instances = %d, want 1", header.instances())
	}
	params := header.params[0]
	if diff := cmp.Diff([]string{params.ProjectRoot()}, params.Strings("paths")); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcher_AuditTrail(t *testing.T) {
	cfg := daedalus.DefaultAuditConfig()
	cfg.Enabled = true
	cfg.OutputFile = filepath.Join(t.TempDir(), "audit.jsonl")
	audit, err := daedalus.NewAuditLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}

	d, _ := newDispatcher(t, passing("A"), failing("B", 1))
	d.Audit = audit
	if _, err := d.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if err := audit.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := daedalus.NewAuditLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()
	stats, err := reopened.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEvents != 3 || stats.FailedEvents != 2 {
		t.Errorf("unexpected audit stats %+v", stats)
	}
}

func TestDependencies(t *testing.T) {
	ready := []Prepared{
		{Plugin: &fakePlugin{name: "shell", deps: []string{"shellcheck-py"}}},
		{Plugin: &fakePlugin{name: "header"}},
	}
	want := map[string][]string{"shell": {"shellcheck-py"}}
	if diff := cmp.Diff(want, Dependencies(ready)); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}
