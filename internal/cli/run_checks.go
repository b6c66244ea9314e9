// run_checks.go: The run-checks command line front-end
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package cli implements the run-checks command: it parses flags with
// flash-flags, resolves the parameters of every selected QA check,
// installs their dependencies and dispatches them in parallel.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/qa"
	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// DefaultCheckConfig is the check config file read when --config is not
// given, relative to the project root.
const DefaultCheckConfig = "tools/qa-checks/qa-checks_config.yml"

// ErrCodeUsage reports invalid command line usage.
const ErrCodeUsage = "DAEDALUS_USAGE_ERROR"

// Options holds the parsed run-checks command line.
type Options struct {
	Checks      []string
	ConfigPath  string
	NoConfig    bool
	Venv        string
	NoVenv      bool
	KeepVenv    bool
	ProjectRoot string
	LogLevel    string
	Jobs        int
	ListChecks  bool
	DryRun      bool

	// CheckFlags maps "{check}_{setting}" to the raw flag value for every
	// check flag that was given.
	CheckFlags map[string]string
}

// RunChecks runs the QA checks of Registry.
type RunChecks struct {
	Registry *qa.Registry
	Stdout   io.Writer
	Stderr   io.Writer

	// Audit records check results when set.
	Audit *daedalus.AuditLogger

	// NewInstaller builds the dependency installer; a PipInstaller when
	// nil.
	NewInstaller func(opts *Options, logger *slog.Logger) qa.Installer
}

// ParseOptions parses args. --check may be repeated and takes comma
// separated names; every other check flag is generated from reg. The
// returned FlagSet prints the help text.
func ParseOptions(reg *qa.Registry, args []string) (*Options, *flashflags.FlagSet, error) {
	checks, rest := extractRepeated(args, "check")

	fs := flashflags.New("run-checks")
	fs.SetDescription("Run quality checks on the repository. By default a Python virtual " +
		"environment is created to install the packages the checks need.\n" +
		"Example: run-checks --check=all")
	fs.String("check", "", "Add a specific check to run, 'all' or 'default' (default: all). May be repeated.")
	fs.String("config", "", "YAML file holding the check parameter defaults (default: <project_root>/"+DefaultCheckConfig+")")
	fs.Bool("no_config", false, "Ignore the check config file")
	fs.String("venv", "", "Existing Python virtual environment to install into. Cannot be passed with --no_venv.")
	fs.Bool("no_venv", false, "Run the checks without a Python virtual environment. Cannot be passed with --venv.")
	fs.Bool("keep_venv", false, "Do not delete the temporary virtual environment after the run")
	fs.String("project_root", "", "Root against which relative paths are resolved (default: working directory)")
	fs.String("log", "info", "Log level (debug|info|warning)")
	fs.Int("jobs", 0, "Maximum number of checks running at once (default: one per CPU)")
	fs.Bool("list-checks", false, "List the available checks and exit")
	fs.Bool("dry-run", false, "Print the resolved parameters of the selected checks and exit")

	specs := reg.FlagSpecs()
	daedalus.BindFlags(fs, specs)

	if daedalus.HelpRequested(rest) {
		return nil, fs, nil
	}
	if err := fs.Parse(rest); err != nil {
		return nil, fs, errors.Wrap(err, ErrCodeUsage, "failed to parse command-line flags")
	}

	opts := &Options{
		Checks:      checks,
		ConfigPath:  fs.GetString("config"),
		NoConfig:    fs.GetBool("no_config"),
		Venv:        fs.GetString("venv"),
		NoVenv:      fs.GetBool("no_venv"),
		KeepVenv:    fs.GetBool("keep_venv"),
		ProjectRoot: fs.GetString("project_root"),
		LogLevel:    fs.GetString("log"),
		Jobs:        fs.GetInt("jobs"),
		ListChecks:  fs.GetBool("list-checks"),
		DryRun:      fs.GetBool("dry-run"),
		CheckFlags:  make(map[string]string),
	}
	if v := fs.GetString("check"); v != "" {
		opts.Checks = append(opts.Checks, v)
	}
	for _, spec := range specs {
		if v := fs.GetString(spec.Name); v != "" {
			opts.CheckFlags[spec.Name] = v
		}
	}

	if opts.Venv != "" && opts.NoVenv {
		return nil, fs, errors.New(ErrCodeUsage, "cannot provide a path via --venv while also setting --no_venv")
	}
	if _, err := parseLogLevel(opts.LogLevel); err != nil {
		return nil, fs, err
	}
	return opts, fs, nil
}

// Run executes run-checks with args and returns the process exit code.
func (r *RunChecks) Run(ctx context.Context, args []string) int {
	opts, fs, err := ParseOptions(r.Registry, args)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr(), "Error: %v\n", err)
		return 1
	}
	if opts == nil {
		fs.PrintHelp()
		return 0
	}
	if opts.ListChecks {
		_, _ = fmt.Fprintln(r.stdout(), checksTable(r.Registry))
		return 0
	}

	level, _ := parseLogLevel(opts.LogLevel)
	sink := qa.NewLogSink(slog.NewTextHandler(r.stderr(), &slog.HandlerOptions{Level: level}), 0)
	defer func() { _ = sink.Close() }()
	logger := sink.Logger()

	code, err := r.run(ctx, opts, logger)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}
	return code
}

func (r *RunChecks) run(ctx context.Context, opts *Options, logger *slog.Logger) (int, error) {
	root, err := projectRoot(opts.ProjectRoot)
	if err != nil {
		return 1, err
	}

	config, err := loadCheckConfig(opts, root, logger)
	if err != nil {
		return 1, err
	}

	dispatcher := &qa.Dispatcher{
		Registry: r.Registry,
		Resolver: &qa.Resolver{
			Config:   config,
			CLI:      opts.CheckFlags,
			Keywords: daedalus.NewKeywordCache(root, logger),
			Logger:   logger,
		},
		Logger: logger,
		Jobs:   opts.Jobs,
		Audit:  r.Audit,
	}

	if opts.DryRun {
		ready, dropped, err := dispatcher.Plan(opts.Checks)
		if err != nil {
			return 1, err
		}
		printParams(r.stdout(), ready, dropped)
		return 0, nil
	}

	if !opts.NoVenv {
		deps := &dependencySetup{inst: r.installer(opts, logger), logger: logger}
		defer deps.Close()
		dispatcher.Setup = deps.Setup
	}

	summary, err := dispatcher.Run(ctx, opts.Checks)
	if err != nil {
		return 1, err
	}
	return summary.ExitCode, nil
}

// dependencySetup installs the packages of the checks about to run and
// points VENV_BIN at the environment.
type dependencySetup struct {
	inst   qa.Installer
	logger *slog.Logger
	used   bool
}

// Setup returns the checks whose packages failed to install.
func (d *dependencySetup) Setup(ctx context.Context, ready []qa.Prepared) ([]string, error) {
	deps := qa.Dependencies(ready)
	if len(deps) == 0 {
		return nil, nil
	}
	d.used = true
	skipped, err := qa.PrepareDependencies(ctx, d.inst, deps, d.logger)
	if err != nil {
		return nil, err
	}
	if err := os.Setenv(qa.VenvBinEnv, d.inst.BinDir()); err != nil {
		return nil, errors.Wrap(err, qa.ErrCodeDependency, "cannot export "+qa.VenvBinEnv)
	}
	return skipped, nil
}

// Close removes the environment unless it was never set up.
func (d *dependencySetup) Close() {
	if !d.used {
		return
	}
	if err := d.inst.Close(); err != nil {
		d.logger.Warn(err.Error())
	}
}

func (r *RunChecks) installer(opts *Options, logger *slog.Logger) qa.Installer {
	if r.NewInstaller != nil {
		return r.NewInstaller(opts, logger)
	}
	return &qa.PipInstaller{Dir: opts.Venv, Keep: opts.KeepVenv, Logger: logger, Progress: r.stderr()}
}

// loadCheckConfig reads the check config file. An explicit --config must
// exist; a missing default file only means running without one.
func loadCheckConfig(opts *Options, root string, logger *slog.Logger) (*qa.FileConfig, error) {
	if opts.NoConfig {
		return nil, nil
	}
	path := opts.ConfigPath
	if path == "" {
		path = filepath.Join(root, DefaultCheckConfig)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Warn("no check config file found, using built-in defaults", "path", path)
			return nil, nil
		}
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	logger.Debug("loading check config", "path", path)
	return qa.LoadFileConfig(path)
}

func projectRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, daedalus.ErrCodeIO, "cannot determine the working directory")
		}
		root = wd
	}
	return daedalus.CanonicalPath(root)
}

func (r *RunChecks) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *RunChecks) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}
