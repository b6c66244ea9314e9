// plan.go: Turning command line and config file input into build tasks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	goerrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/daedalus"
	"github.com/agilira/go-errors"
)

// BuildAll is the kasfile argument selecting every build target of the
// runner config file.
const BuildAll = "all"

// Task is one resolved build.
type Task struct {
	// Name is the config entry for "build all" runs and the kas file
	// list otherwise.
	Name   string
	Config *daedalus.ResolvedConfig
}

// Request describes what the operator asked to build.
type Request struct {
	// ConfigRef is "path[:entry]" of a runner config file; empty means
	// none, except for BuildAll runs.
	ConfigRef string

	// CLI holds command line values keyed by setting name. kasfile is a
	// []string of positional arguments.
	CLI map[string]any

	Environ   []string
	EnvPrefix string
}

// IsBuildAll reports whether the positional arguments request every build
// target.
func (r Request) IsBuildAll() bool {
	for _, k := range kasFileArgs(r.CLI) {
		if k == BuildAll {
			return true
		}
	}
	return false
}

func kasFileArgs(cli map[string]any) []string {
	switch v := cli[SettingKasFile].(type) {
	case []string:
		return v
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// Planner resolves build requests against the runner registry.
type Planner struct {
	Registry *daedalus.Registry
	Logger   *slog.Logger
}

func (p *Planner) pipeline(env string) *daedalus.Pipeline {
	return &daedalus.Pipeline{
		Registry:  p.Registry,
		FanOut:    SettingKasFile,
		EnvPrefix: env,
		Logger:    p.Logger,
	}
}

// Plan returns the tasks of req. Configs that fail to resolve are left out
// and reported in the joined error; the remaining tasks are still returned.
func (p *Planner) Plan(req Request) ([]Task, error) {
	src := daedalus.Sources{ConfigRef: req.ConfigRef, CLI: req.CLI, Environ: req.Environ}

	if req.IsBuildAll() {
		return p.planAll(req, src)
	}

	if len(kasFileArgs(req.CLI)) == 0 && req.ConfigRef == "" {
		return nil, errors.New(ErrCodeNoKasFile, "no kas configs specified")
	}
	res := p.pipeline(req.EnvPrefix).Build(src)
	tasks := make([]Task, 0, len(res.Configs))
	for _, cfg := range res.Configs {
		tasks = append(tasks, Task{Name: cfg.String(SettingKasFile), Config: cfg})
	}
	return tasks, res.Err
}

func (p *Planner) planAll(req Request, src daedalus.Sources) ([]Task, error) {
	cli := make(map[string]any, len(req.CLI))
	for k, v := range req.CLI {
		if k != SettingKasFile {
			cli[k] = v
		}
	}
	src.CLI = cli
	if src.ConfigRef == "" {
		src.ConfigRef = p.DefaultConfig(cli)
	}

	targets, err := ListConfigs(src.ConfigRef)
	if err != nil {
		return nil, err
	}
	results, err := p.pipeline(req.EnvPrefix).BuildEntries(src, targets)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	var errs []error
	for _, res := range results {
		for _, cfg := range res.Configs {
			tasks = append(tasks, Task{Name: res.Entry, Config: cfg})
		}
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return tasks, goerrors.Join(errs...)
}

// DefaultConfig returns the config file used by "build all" runs when none
// is given, under the project root named in cli or the working directory.
func (p *Planner) DefaultConfig(cli map[string]any) string {
	root, _ := cli[SettingProjectRoot].(string)
	if root == "" {
		root, _ = os.Getwd()
	}
	return filepath.Join(root, DefaultRunnerConfig)
}

// ListConfigs returns the build targets of the runner config file in ref.
func ListConfigs(ref string) ([]string, error) {
	r, err := daedalus.ParseConfigRef(ref)
	if err != nil {
		return nil, err
	}
	file, err := daedalus.LoadConfigFile(r.Path)
	if err != nil {
		return nil, err
	}
	return file.BuildTargets(), nil
}

// FormatTargets renders targets the way --list-configs prints them.
func FormatTargets(targets []string) string {
	return "Build targets: " + strings.Join(targets, " ")
}

// CheckKasFiles fails when any kas file of cfg is missing from kas_dir.
func CheckKasFiles(cfg *daedalus.ResolvedConfig) error {
	kasDir := cfg.String(SettingKasDir)
	var missing []string
	for _, kfile := range SplitKasFiles(cfg.String(SettingKasFile)) {
		info, err := os.Stat(filepath.Join(kasDir, kfile))
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, kfile)
		}
	}
	if len(missing) > 0 {
		return errors.New(ErrCodeMissingKasFile,
			fmt.Sprintf("the kas config files:\n%s\nwere not found", strings.Join(missing, "\n"))).
			WithContext("kas_dir", kasDir)
	}
	return nil
}
