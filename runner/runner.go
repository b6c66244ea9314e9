// runner.go: Sequential execution of build tasks in a kas container
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/agilira/daedalus"
	"github.com/agilira/go-errors"
	timecache "github.com/agilira/go-timecache"
	"github.com/kballard/go-shellquote"
)

// Executor runs one command line, streaming its output to out, and returns
// its exit code. An error means the command could not be run at all.
type Executor interface {
	Run(ctx context.Context, argv []string, out io.Writer) (int, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

// Run implements Executor.
func (ExecExecutor) Run(ctx context.Context, argv []string, out io.Writer) (int, error) {
	if len(argv) == 0 {
		return -1, errors.New(ErrCodeBuild, "empty command line")
	}
	// #nosec G204 -- the command line is assembled from operator settings
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if goerrors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrap(err, ErrCodeBuild, "cannot run "+argv[0])
}

// Runner executes build tasks one after the other.
type Runner struct {
	Logger   *slog.Logger
	Stdout   io.Writer
	Executor Executor
	Audit    *daedalus.AuditLogger

	// DryRun prints the container command lines instead of running them.
	DryRun bool

	// Now names the container; defaults to the cached clock.
	Now func() time.Time
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Runner) executor() Executor {
	if r.Executor == nil {
		return ExecExecutor{}
	}
	return r.Executor
}

func (r *Runner) containerName() string {
	now := timecache.CachedTime()
	if r.Now != nil {
		now = r.Now()
	}
	return ContainerPrefix + strconv.FormatInt(now.Unix(), 10)
}

// Run executes every task and returns the OR of their exit codes. The
// context stops the running container when it is cancelled; remaining
// tasks are not started. A log file shared by several tasks is truncated
// once and then collects the output of all of them.
func (r *Runner) Run(ctx context.Context, tasks []Task) int {
	logs := logFiles{}
	defer logs.Close()

	code := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			r.logger().Warn("build interrupted, skipping remaining tasks", "task", task.Name)
			return code | 1
		}
		code |= r.runTask(ctx, task, logs)
	}
	return code
}

// RunTask executes a single task. The log_file setting, when set, receives
// the container output; the start and finish lines go to both.
func (r *Runner) RunTask(ctx context.Context, task Task) int {
	logs := logFiles{}
	defer logs.Close()
	return r.runTask(ctx, task, logs)
}

// taskSettings are the settings a build reads from its resolved config.
type taskSettings struct {
	logFile      string
	buildName    string
	buildDir     string
	artifactsDir string
	imageVersion string
	deploy       bool
	dirs         []string
}

func bindTaskSettings(cfg *daedalus.ResolvedConfig) (taskSettings, error) {
	var s taskSettings
	var outDir, sstateDir, dlDir, sstateMirror, dlMirror string
	err := daedalus.BindResolved(cfg).
		BindString(&s.logFile, SettingLogFile).
		BindString(&s.buildName, SettingBuildName).
		BindString(&s.buildDir, SettingBuildDir).
		BindString(&s.artifactsDir, SettingArtifactsDir).
		BindString(&s.imageVersion, SettingContainerImageVersion).
		BindBool(&s.deploy, SettingDeployArtifacts).
		BindString(&outDir, SettingOutDir).
		BindString(&sstateDir, SettingSstateDir).
		BindString(&dlDir, SettingDlDir).
		BindString(&sstateMirror, SettingSstateMirror).
		BindString(&dlMirror, SettingDownloadsMirror).
		Apply()
	s.dirs = []string{outDir, s.buildDir, sstateDir, dlDir, sstateMirror, dlMirror}
	return s, err
}

func (r *Runner) runTask(ctx context.Context, task Task, logs logFiles) int {
	logger := r.logger().With("task", task.Name)
	settings, err := bindTaskSettings(task.Config)
	if err != nil {
		logger.Error("invalid task configuration", "error", err)
		return r.finish(task, 1, nil)
	}

	term := r.stdout()
	out := term
	if settings.logFile != "" && !r.DryRun {
		f, err := logs.Open(settings.logFile)
		if err != nil {
			logger.Error("cannot open log file", "path", settings.logFile, "error", err)
			return r.finish(task, 1, nil)
		}
		out = f
		term = io.MultiWriter(term, f)
	}

	_, _ = fmt.Fprintf(term, "Starting build task: %s\n", task.Name)
	code := r.build(ctx, logger, task.Config, settings, out)
	_, _ = fmt.Fprintf(term, "Finished build task: %s\n\n", task.Name)
	return r.finish(task, code, map[string]any{"build_name": settings.buildName})
}

func (r *Runner) finish(task Task, code int, ctx map[string]any) int {
	r.Audit.LogBuild(task.Name, code, ctx)
	return code
}

func (r *Runner) build(ctx context.Context, logger *slog.Logger, cfg *daedalus.ResolvedConfig, settings taskSettings, out io.Writer) int {
	if err := CheckKasFiles(cfg); err != nil {
		_, _ = fmt.Fprintf(out, "Error: %v\n", err)
		logger.Error("missing kas config files", "error", err)
		return 1
	}
	checkImageVersion(logger, settings.imageVersion)

	container, argv, err := BuildArgv(cfg, r.containerName())
	if err != nil {
		logger.Error("cannot assemble container command", "error", err)
		return 1
	}

	if r.DryRun {
		_, _ = fmt.Fprintln(out, shellquote.Join(argv...))
		return 0
	}

	if err := prepareDirs(settings.dirs); err != nil {
		logger.Error("cannot create build directories", "error", err)
		return 1
	}

	logger.Debug("running container", "command", shellquote.Join(argv...))
	code := r.runContainer(ctx, logger, container, argv, out)

	if settings.deploy {
		dest := filepath.Join(settings.artifactsDir, settings.buildName)
		if err := DeployArtifacts(settings.buildDir, dest, out); err != nil {
			logger.Error("cannot deploy build artifacts", "error", err)
			code |= 1
		}
	}
	return code
}

// runContainer runs argv detached from ctx so the engine is stopped
// explicitly on cancellation rather than killed.
func (r *Runner) runContainer(ctx context.Context, logger *slog.Logger, c *Container, argv []string, out io.Writer) int {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("received interrupt during the run, stopping the container", "container", c.Name)
			if _, err := r.executor().Run(context.Background(), c.StopArgv(), out); err != nil {
				logger.Error("cannot stop container", "container", c.Name, "error", err)
			}
		}
	}()

	code, err := r.executor().Run(context.WithoutCancel(ctx), argv, out)
	close(done)
	<-stopped
	if err != nil {
		logger.Error("container run failed", "error", err)
		return 1
	}
	if ctx.Err() != nil && code == 0 {
		code = 1
	}
	return code
}

func checkImageVersion(logger *slog.Logger, version string) {
	v, err := semver.NewVersion(version)
	if err != nil {
		logger.Debug("container image version is not semantic, skipping version check", "version", version)
		return
	}
	if v.LessThan(semver.MustParse(minImageWithDirs)) {
		logger.Warn("container image version lacks KAS_BUILD_DIR support", "version", version, "minimum", minImageWithDirs)
	}
}

func prepareDirs(dirs []string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, daedalus.ErrCodeIO, "cannot create directory: "+dir)
		}
	}
	return nil
}

// logFiles holds the log files opened during one run, keyed by path.
type logFiles map[string]*os.File

// Open returns the file at path, truncating it on first use.
func (l logFiles) Open(path string) (*os.File, error) {
	if f, ok := l[path]; ok {
		return f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, daedalus.ErrCodeIO, "cannot create log directory")
	}
	// #nosec G304 -- log path comes from the operator
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, daedalus.ErrCodeIO, "cannot open log file: "+path)
	}
	l[path] = f
	return f, nil
}

// Close closes every file.
func (l logFiles) Close() {
	for path, f := range l {
		_ = f.Close()
		delete(l, path)
	}
}
