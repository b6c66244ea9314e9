// deps.go: Installing the Python packages checks depend on
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// Installer provides the environment the checks' dependencies live in.
type Installer interface {
	// Setup creates the environment.
	Setup(ctx context.Context) error

	// Install installs one package.
	Install(ctx context.Context, pkg string) error

	// BinDir is the directory holding the installed executables.
	BinDir() string

	// Close removes the environment unless it is kept.
	Close() error
}

// PrepareDependencies installs deps, which map a check name to its
// packages. Packages shared by several checks are installed once. The
// names of checks with a failed package are returned, sorted. A failed
// package owned by the empty name is needed by the run itself and aborts
// it with an error.
func PrepareDependencies(ctx context.Context, inst Installer, deps map[string][]string, logger *slog.Logger) ([]string, error) {
	owners := make([]string, 0, len(deps))
	for owner, pkgs := range deps {
		if len(pkgs) > 0 {
			owners = append(owners, owner)
		}
	}
	if len(owners) == 0 {
		return nil, nil
	}
	slices.Sort(owners)

	if err := inst.Setup(ctx); err != nil {
		return nil, err
	}

	installed := make(map[string]error)
	var failed []string
	for _, owner := range owners {
		ok := true
		for _, pkg := range deps[owner] {
			err, done := installed[pkg]
			if !done {
				err = inst.Install(ctx, pkg)
				installed[pkg] = err
				if err != nil {
					logger.Error("could not install package", "package", pkg, "error", err)
				}
			}
			if err != nil {
				ok = false
			}
		}
		if ok {
			continue
		}
		if owner == "" {
			return nil, errors.New(ErrCodeDependency, "a dependency of the check runner could not be installed")
		}
		logger.Warn("dependency installation failed, skipping the check", "check", owner)
		failed = append(failed, owner)
	}
	return failed, nil
}

// PipInstaller installs packages with pip into a Python virtual
// environment.
type PipInstaller struct {
	// Python is the interpreter creating the environment; "python3" when
	// empty.
	Python string

	// Dir is an existing environment to reuse. When empty a temporary one
	// is created and removed by Close unless Keep is set.
	Dir  string
	Keep bool

	Logger *slog.Logger

	// Progress receives a spinner while packages install, when it is a
	// terminal.
	Progress io.Writer

	// Run executes commands; RunCommand when nil.
	Run CommandFunc

	created bool
}

// Setup creates the environment when needed and checks that pip works.
func (p *PipInstaller) Setup(ctx context.Context) error {
	if p.Dir == "" {
		dir, err := os.MkdirTemp("", "daedalus-venv-")
		if err != nil {
			return errors.Wrap(err, ErrCodeDependency, "cannot create the virtual environment directory")
		}
		p.Dir, p.created = dir, true
		p.logger().Debug("created venv directory", "dir", dir)
	} else if info, err := os.Stat(p.Dir); err != nil || !info.IsDir() {
		return errors.New(ErrCodeDependency, "cannot find the given venv directory: "+p.Dir).
			WithContext("dir", p.Dir)
	}

	if _, err := os.Stat(p.python()); err != nil {
		python := p.Python
		if python == "" {
			python = "python3"
		}
		out, code, err := p.run(ctx, "", python, "-m", "venv", p.Dir)
		if err != nil || code != 0 {
			p.logger().Debug(out)
			return errors.New(ErrCodeDependency, "cannot create the virtual environment in "+p.Dir).
				WithContext("dir", p.Dir)
		}
	}

	out, code, err := p.run(ctx, "", p.python(), "-m", "pip", "--version")
	if err != nil || code != 0 {
		p.logger().Debug(out)
		return errors.New(ErrCodeDependency, "pip is not available in the virtual environment "+p.Dir).
			WithContext("dir", p.Dir)
	}
	return nil
}

// Install runs pip install for pkg.
func (p *PipInstaller) Install(ctx context.Context, pkg string) error {
	args := []string{"-m", "pip", "install", pkg}
	if !p.logger().Enabled(ctx, slog.LevelInfo) {
		args = append(args, "-q")
	}

	stop := p.spin("Installing " + pkg)
	out, code, err := p.run(ctx, "", p.python(), args...)
	stop()

	if err != nil || code != 0 {
		p.logger().Debug(out)
		return errors.New(ErrCodeDependency, "failed to install Python package '"+pkg+"' via pip").
			WithContext("package", pkg)
	}
	name, _, _ := strings.Cut(pkg, "=")
	if !strings.Contains(out, "already satisfied: "+name) {
		p.logger().Debug("installed Python package", "package", pkg)
	}
	return nil
}

// BinDir returns the environment's bin directory.
func (p *PipInstaller) BinDir() string {
	return filepath.Join(p.Dir, "bin")
}

// Close deletes a temporary environment unless Keep is set.
func (p *PipInstaller) Close() error {
	if !p.created {
		return nil
	}
	if p.Keep {
		p.logger().Info("kept venv directory", "dir", p.Dir)
		return nil
	}
	if err := os.RemoveAll(p.Dir); err != nil {
		return errors.Wrap(err, ErrCodeDependency, "cannot delete the venv directory "+p.Dir)
	}
	p.logger().Debug("deleted the venv directory", "dir", p.Dir)
	return nil
}

func (p *PipInstaller) python() string {
	return filepath.Join(p.BinDir(), "python")
}

func (p *PipInstaller) run(ctx context.Context, dir, name string, args ...string) (string, int, error) {
	if p.Run != nil {
		return p.Run(ctx, dir, name, args...)
	}
	return RunCommand(ctx, dir, name, args...)
}

func (p *PipInstaller) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// spin shows a spinner on a terminal and returns the function stopping it.
func (p *PipInstaller) spin(msg string) func() {
	f, ok := p.Progress.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}
