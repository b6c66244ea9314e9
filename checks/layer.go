// layer.go: Yocto layer compatibility check through the kas runner
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/qa"
	"github.com/agilira/daedalus/runner"
	"github.com/kballard/go-shellquote"
)

// Layer check parameters.
const (
	ParamKasConfigs  = "kas_configs"
	ParamTestLayers  = "test_layers"
	ParamMachines    = "machines"
	ParamNetworkMode = "network_mode"
)

const (
	layerCheckDir  = "/work/kas_work_dir/build/layer_check"
	newLayerMarker = "Starting to analyze: "
	failMarker     = "INFO: FAIL: "
)

var (
	bblayersRe      = regexp.MustCompile(`(?m)^BBLAYERS="(.*)"\r?$`)
	blankLinesRe    = regexp.MustCompile(`\n\n\n+`)
	getBBLayersArgs = "shell --command " + shellquote.Join("bitbake-getvar BBLAYERS")
)

// KasBuild runs kas in the build container for the colon separated kas
// config list, streaming the output to out, and returns the exit code.
type KasBuild func(ctx context.Context, kasConfig, kasArguments string, out io.Writer) (int, error)

// Layer runs yocto-check-layer on the test layers within the build context
// of each kas config.
func Layer() qa.Plugin {
	return &definition{
		name: "layer",
		settings: []qa.CheckSetting{
			{
				Name:     ParamKasConfigs,
				List:     true,
				Required: true,
				Message:  "Colon separated kas config files providing the build context for the layer check.",
			},
			{
				Name:     ParamTestLayers,
				List:     true,
				Required: true,
				Message:  "Yocto layers to be tested, given by their directory basenames.",
			},
			{
				Name:    ParamMachines,
				List:    true,
				Message: "Optional names of MACHINEs that should be used for the layer check.",
			},
			{
				Name:    ParamNetworkMode,
				Message: "Container network mode for the kas runner. The runner default applies when unset.",
			},
		},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &layerCheck{logger: logger, params: params}
		},
	}
}

type layerCheck struct {
	logger *slog.Logger
	params qa.Params
	build  KasBuild
}

// runnerBuild runs kas in-process through the runner package.
func runnerBuild(logger *slog.Logger, projectRoot, networkMode string) KasBuild {
	return func(ctx context.Context, kasConfig, kasArguments string, out io.Writer) (int, error) {
		reg, err := runner.NewRegistry(logger)
		if err != nil {
			return 1, err
		}
		cli := map[string]any{
			runner.SettingProjectRoot:  projectRoot,
			runner.SettingKasArguments: kasArguments,
			runner.SettingKasFile:      []string{kasConfig},
		}
		if networkMode != "" {
			cli[runner.SettingNetworkMode] = networkMode
		}
		planner := &runner.Planner{Registry: reg, Logger: logger}
		tasks, err := planner.Plan(runner.Request{
			CLI:       cli,
			Environ:   os.Environ(),
			EnvPrefix: daedalus.DefaultEnvPrefix,
		})
		if err != nil {
			return 1, err
		}
		r := &runner.Runner{Logger: logger, Stdout: out}
		return r.Run(ctx, tasks), nil
	}
}

func (c *layerCheck) Run(ctx context.Context) int {
	c.logger.Info("Running layer check, this may take a while.")
	build := c.build
	if build == nil {
		build = runnerBuild(c.logger, c.params.ProjectRoot(), c.params.String(ParamNetworkMode))
	}

	var order []string
	errs := map[string][]string{}
	for _, kasConfig := range c.params.Strings(ParamKasConfigs) {
		order = append(order, kasConfig)
		errs[kasConfig] = c.checkConfig(ctx, build, kasConfig)
	}

	failed := false
	for _, kasConfig := range order {
		if len(errs[kasConfig]) > 0 {
			failed = true
		}
	}
	if !failed {
		c.logger.Info("PASS")
		return 0
	}
	c.logger.Error("FAIL")
	for _, kasConfig := range order {
		if len(errs[kasConfig]) == 0 {
			continue
		}
		c.logger.Error(fmt.Sprintf("Found check failures when validating target layers with kas configuration %s:", kasConfig))
		for _, e := range errs[kasConfig] {
			c.logger.Error(e)
		}
	}
	return 1
}

func (c *layerCheck) checkConfig(ctx context.Context, build KasBuild, kasConfig string) []string {
	layers, errs := c.buildLayers(ctx, build, kasConfig)
	if errs != nil {
		return errs
	}

	var tested []string
	for _, want := range c.params.Strings(ParamTestLayers) {
		found := ""
		for _, l := range layers {
			if filepath.Base(l) == want {
				found = l
				break
			}
		}
		if found == "" {
			errs = append(errs, want+": Could not find this layer within the bitbake build.")
			continue
		}
		tested = append(tested, found)
	}
	if len(errs) > 0 {
		return errs
	}

	var deps []string
	for _, l := range layers {
		if !slices.Contains(tested, l) {
			deps = append(deps, l)
		}
	}

	shellCmd := fmt.Sprintf("mkdir -p %[1]s && BUILDDIR=%[1]s BB_NO_NETWORK=1 yocto-check-layer-wrapper %s --dependency %s --no-auto-dependency",
		layerCheckDir, strings.Join(tested, " "), strings.Join(deps, " "))
	if machines := c.params.Strings(ParamMachines); len(machines) > 0 {
		shellCmd += " --machines " + strings.Join(machines, " ")
	}
	kasArgs := "shell --command " + shellquote.Join(shellCmd)
	c.logger.Debug("Running layer check", "kas_config", kasConfig, "kas_arguments", kasArgs)

	var out bytes.Buffer
	code, err := build(ctx, kasConfig, kasArgs, &out)
	if err != nil {
		return []string{err.Error()}
	}
	errs = parseLayerFailures(out.String())
	if len(errs) == 0 && code != 0 {
		errs = append(errs,
			fmt.Sprintf("yocto-check-layer returned non-zero error code (%d) but no failed test was found.", code),
			"The command was: "+kasArgs,
			"The output was:\n"+prefixLines(strings.TrimSpace(out.String()), "\tkas:"))
	}
	return errs
}

// buildLayers returns the BBLAYERS of the build, or the errors explaining
// why they could not be read.
func (c *layerCheck) buildLayers(ctx context.Context, build KasBuild, kasConfig string) ([]string, []string) {
	var out bytes.Buffer
	code, err := build(ctx, kasConfig, getBBLayersArgs, &out)
	output := strings.TrimSpace(out.String())
	failure := func(extra ...string) []string {
		errs := []string{
			"Could not get the build's BBLAYERS via: " + getBBLayersArgs,
			"The output was:\n\t" + strings.ReplaceAll(output, "\n", "\n\t"),
		}
		return append(errs, extra...)
	}
	if err != nil {
		return nil, failure(err.Error())
	}
	if code != 0 {
		return nil, failure(fmt.Sprintf("Return code was %d", code))
	}
	matches := bblayersRe.FindAllStringSubmatch(output, -1)
	if len(matches) != 1 {
		return nil, failure()
	}
	return strings.Fields(matches[0][1]), nil
}

// parseLayerFailures extracts "<layer>:FAIL <test>" and the error message
// printed between the separator lines that follow it.
func parseLayerFailures(output string) []string {
	var errs []string
	var layer, test string
	var msg *strings.Builder
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.Contains(line, newLayerMarker):
			_, layer, _ = strings.Cut(line, newLayerMarker)
		case strings.Contains(line, failMarker):
			_, rest, _ := strings.Cut(line, failMarker)
			if f := strings.Fields(rest); len(f) > 0 {
				test = f[0]
			}
		case test != "":
			if strings.Contains(line, strings.Repeat("-", 30)) || strings.Contains(line, strings.Repeat("=", 30)) {
				if msg == nil {
					msg = &strings.Builder{}
					msg.WriteString("\t")
					continue
				}
				text := blankLinesRe.ReplaceAllString(msg.String(), "\n")
				text = strings.TrimRight(strings.ReplaceAll(text, "\n", "\n\t"), " \t\n")
				errs = append(errs, layer+":FAIL "+test, "The error message was:\n"+text)
				test, msg = "", nil
				continue
			}
			if msg != nil {
				msg.WriteString(line + "\n")
			}
		}
	}
	return errs
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
