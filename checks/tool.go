// tool.go: Checks delegating to an external linter per file
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/agilira/daedalus/qa"
	"github.com/agilira/go-errors"
	"github.com/kballard/go-shellquote"
)

// ParamYamllintArgs passes extra arguments to yamllint.
const ParamYamllintArgs = "yamllint_args"

// toolCheck runs an external tool on every selected file and reports the
// tool's messages for files it rejects.
type toolCheck struct {
	logger *slog.Logger
	params qa.Params
	name   string
	tool   string

	// args returns the arguments for path after the tool name.
	args func(path string) ([]string, error)
	// parse extracts the error messages from the output of a failed run.
	parse func(path, output string) []string

	exec qa.CommandFunc
	find func(logger *slog.Logger, name string) string
}

func (c *toolCheck) Run(ctx context.Context) int {
	c.logger.Debug(fmt.Sprintf("Running %s check", c.name))

	find := c.find
	if find == nil {
		find = qa.FindExecutable
	}
	script := find(c.logger, c.tool)
	if script == "" {
		return qa.Fail(c.logger, fmt.Sprintf("Could not find %s executable", c.tool))
	}
	exec := c.exec
	if exec == nil {
		exec = qa.RunCommand
	}

	report := qa.NewReport()
	walkPaths(c.params, report, func(path string) {
		defer report.Checked()
		args, err := c.args(path)
		if err != nil {
			report.Add(c.params.Rel(path), err.Error())
			return
		}
		out, code, err := exec(ctx, c.params.ProjectRoot(), script, args...)
		switch {
		case err != nil:
			report.Add(c.params.Rel(path), err.Error())
		case code != 0:
			errs := c.parse(path, out)
			if len(errs) == 0 {
				errs = []string{fmt.Sprintf("Unknown error (rc = %d)", code)}
			}
			report.Add(c.params.Rel(path), errs...)
		}
	})
	return report.Finish(c.logger)
}

// stripFilename drops everything up to "<basename>:" on each output line,
// as emitted by gcc-style linters.
func stripFilename(path, output string) []string {
	prefix := filepath.Base(path) + ":"
	var errs []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, rest, ok := strings.Cut(line, prefix); ok {
			line = rest
		}
		errs = append(errs, line)
	}
	return errs
}

// dropPathLines keeps the output lines that do not name path, trimmed, as
// yamllint prints the file name on a line of its own.
func dropPathLines(path, output string) []string {
	var errs []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, path) {
			continue
		}
		errs = append(errs, line)
	}
	return errs
}

// Shell runs shellcheck on shell scripts.
func Shell() qa.Plugin {
	return &definition{
		name: "shell",
		settings: []qa.CheckSetting{
			pathsSetting(),
			excludeSetting(),
			fileTypesSetting("shell script", "bash script"),
		},
		deps: []string{"shellcheck-py"},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &toolCheck{
				logger: logger,
				params: params,
				name:   "shell",
				tool:   "shellcheck",
				args: func(path string) ([]string, error) {
					return []string{"-f", "gcc", path}, nil
				},
				parse: stripFilename,
			}
		},
	}
}

// Python runs pycodestyle on Python scripts.
func Python() qa.Plugin {
	return &definition{
		name: "python",
		settings: []qa.CheckSetting{
			pathsSetting(),
			excludeSetting(),
			fileTypesSetting("Python script"),
		},
		deps: []string{"pycodestyle"},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &toolCheck{
				logger: logger,
				params: params,
				name:   "python",
				tool:   "pycodestyle",
				args: func(path string) ([]string, error) {
					return []string{path}, nil
				},
				parse: stripFilename,
			}
		},
	}
}

// YAML runs yamllint on YAML files.
func YAML() qa.Plugin {
	return &definition{
		name: "yaml",
		settings: []qa.CheckSetting{
			pathsSetting(),
			{
				Name:    ParamIncludePatterns,
				List:    true,
				Pattern: true,
				Default: []string{"*.yml", "*.yaml"},
				Message: "Patterns where if none are matched with the file/directory name, the check will not be applied to it.",
			},
			excludeSetting(),
			{
				Name:    ParamYamllintArgs,
				Default: "",
				Message: "Custom arguments to pass through to the yamllint command. Set it with '=' on the command line.",
			},
		},
		deps: []string{"yamllint==1.26.3"},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &toolCheck{
				logger: logger,
				params: params,
				name:   "yaml",
				tool:   "yamllint",
				args: func(path string) ([]string, error) {
					extra, err := shellquote.Split(params.String(ParamYamllintArgs))
					if err != nil {
						return nil, errors.Wrap(err, qa.ErrCodeCheckConfig, "invalid "+ParamYamllintArgs)
					}
					return append([]string{path}, extra...), nil
				},
				parse: dropPathLines,
			}
		},
	}
}
