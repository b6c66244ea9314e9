// layer_test.go: Tests for the layer check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/agilira/daedalus/qa"
	"github.com/google/go-cmp/cmp"
	"github.com/kballard/go-shellquote"
)

const layerFailureOutput = `Starting build task: base.yml
INFO: Starting to analyze: meta-ewaol-distro
INFO: ======================================================================
INFO: FAIL: test_signatures (common.CommonCheckLayer)
INFO: ----------------------------------------------------------------------
INFO: Traceback (most recent call last):



INFO: AssertionError: signature changes found
INFO: ======================================================================
INFO: SUMMARY:
`

type fakeBuild struct {
	calls   []string
	bblayer string
	output  string
	code    int
}

func (f *fakeBuild) run(_ context.Context, kasConfig, kasArguments string, out io.Writer) (int, error) {
	f.calls = append(f.calls, kasConfig+"|"+kasArguments)
	if kasArguments == getBBLayersArgs {
		_, _ = io.WriteString(out, "Starting build task\n"+f.bblayer+"\nFinished build task\n")
		return 0, nil
	}
	_, _ = io.WriteString(out, f.output)
	return f.code, nil
}

func layerParams() qa.Params {
	return qa.Params{
		qa.ProjectRootParam: "/src",
		ParamKasConfigs:     []string{"base.yml:tests.yml"},
		ParamTestLayers:     []string{"meta-ewaol-distro"},
		ParamMachines:       []string{"generic-arm64"},
	}
}

func TestParseLayerFailures(t *testing.T) {
	got := parseLayerFailures(layerFailureOutput)
	want := []string{
		"meta-ewaol-distro:FAIL test_signatures",
		"The error message was:\n\tINFO: Traceback (most recent call last):\n\tINFO: AssertionError: signature changes found",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseLayerFailures mismatch (-want +got):\n%s", diff)
	}
}

func TestLayerCheck_Pass(t *testing.T) {
	fake := &fakeBuild{bblayer: `BBLAYERS="/work/poky/meta /work/meta-ewaol-distro /work/meta-virtualization"`}
	logger, buf := bufferLogger()
	check := &layerCheck{logger: logger, params: layerParams(), build: fake.run}

	if code := check.Run(context.Background()); code != 0 {
		t.Fatalf("exit code = %d, want 0:\n%s", code, buf.String())
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 kas runs, got %q", fake.calls)
	}
	_, args, _ := strings.Cut(fake.calls[1], "|")
	words, err := shellquote.Split(args)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"shell", "--command",
		"mkdir -p /work/kas_work_dir/build/layer_check && BUILDDIR=/work/kas_work_dir/build/layer_check BB_NO_NETWORK=1" +
			" yocto-check-layer-wrapper /work/meta-ewaol-distro" +
			" --dependency /work/poky/meta /work/meta-virtualization --no-auto-dependency --machines generic-arm64"}
	if diff := cmp.Diff(want, words); diff != "" {
		t.Errorf("kas arguments mismatch (-want +got):\n%s", diff)
	}
	assertContains(t, buf.String(), "PASS")
}

func TestLayerCheck_Failures(t *testing.T) {
	tests := []struct {
		name  string
		fake  *fakeBuild
		wants []string
	}{
		{
			name:  "TestFailure",
			fake:  &fakeBuild{bblayer: `BBLAYERS="/work/meta-ewaol-distro"`, output: layerFailureOutput, code: 1},
			wants: []string{"Found check failures when validating target layers with kas configuration base.yml:tests.yml", "meta-ewaol-distro:FAIL test_signatures"},
		},
		{
			name:  "UnknownFailure",
			fake:  &fakeBuild{bblayer: `BBLAYERS="/work/meta-ewaol-distro"`, output: "boom\n", code: 2},
			wants: []string{"returned non-zero error code (2) but no failed test was found", "kas:boom"},
		},
		{
			name:  "LayerNotInBuild",
			fake:  &fakeBuild{bblayer: `BBLAYERS="/work/poky/meta"`},
			wants: []string{"meta-ewaol-distro: Could not find this layer within the bitbake build."},
		},
		{
			name:  "NoBBLAYERS",
			fake:  &fakeBuild{bblayer: "nothing useful"},
			wants: []string{"Could not get the build's BBLAYERS via"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			check := &layerCheck{logger: logger, params: layerParams(), build: tt.fake.run}
			if code := check.Run(context.Background()); code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			assertContains(t, buf.String(), append([]string{"FAIL"}, tt.wants...)...)
		})
	}
}

func TestLayerPlugin_RequiredSettings(t *testing.T) {
	var required []string
	for _, s := range Layer().Settings() {
		if s.Required {
			required = append(required, s.Name)
		}
	}
	if diff := cmp.Diff([]string{ParamKasConfigs, ParamTestLayers}, required); diff != "" {
		t.Errorf("required settings mismatch (-want +got):\n%s", diff)
	}
}
