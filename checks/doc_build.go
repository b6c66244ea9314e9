// doc_build.go: Documentation build check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/agilira/daedalus/qa"
	"github.com/kballard/go-shellquote"
)

// Documentation build parameters.
const (
	ParamDocScript       = "script"
	ParamDocumentDir     = "documentation_dir"
	ParamDocOutputDir    = "output_dir"
	ParamDocRequirements = "requirements"
)

// DocBuild runs the documentation build script and fails on any warning
// it turns into an error.
func DocBuild() qa.Plugin {
	return &definition{
		name: "doc_build",
		settings: []qa.CheckSetting{
			{
				Name:    ParamDocScript,
				Default: "tools/build/doc-build.py",
				Message: "Documentation build script, relative to project_root unless absolute.",
			},
			{
				Name:    ParamDocumentDir,
				Message: "Path to directory containing documentation source.",
			},
			{
				Name:    ParamDocOutputDir,
				Message: "Path to directory where generated documentation will be placed. If set to '' a temporary directory is used and deleted after the build.",
			},
			{
				Name:    ParamDocRequirements,
				Message: "Path to pip requirements file for building the documentation.",
			},
		},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &docBuildCheck{logger: logger, params: params}
		},
	}
}

type docBuildCheck struct {
	logger *slog.Logger
	params qa.Params
	exec   qa.CommandFunc
	find   func(logger *slog.Logger, name string) string
}

func (c *docBuildCheck) Run(ctx context.Context) int {
	script := c.params.Path(ParamDocScript)
	if info, err := os.Stat(script); err != nil || !info.Mode().IsRegular() {
		c.logger.Error(fmt.Sprintf("Could not find %s", script))
		return 1
	}
	c.logger.Debug("Running doc_build check")

	find := c.find
	if find == nil {
		find = qa.FindExecutable
	}
	python := find(c.logger, "python3")
	if python == "" {
		return qa.Fail(c.logger, "Could not find python3 executable")
	}

	args := []string{script, "--project_root", c.params.ProjectRoot()}
	if c.params.Has(ParamDocumentDir) {
		args = append(args, "--documentation_dir", c.params.Path(ParamDocumentDir))
	}
	if c.params.Has(ParamDocOutputDir) {
		out := c.params.Path(ParamDocOutputDir)
		if out == "" {
			tmp, err := os.MkdirTemp("", "daedalus-docs-")
			if err != nil {
				return qa.Fail(c.logger, err.Error())
			}
			defer func() { _ = os.RemoveAll(tmp) }()
			c.logger.Debug("Building documentation into temporary directory")
			out = tmp
		}
		args = append(args, "--output_dir", out)
	}
	if c.params.Has(ParamDocRequirements) {
		args = append(args, "--requirements", c.params.Path(ParamDocRequirements))
	}
	c.logger.Debug(fmt.Sprintf("Running command '%s'", shellquote.Join(append([]string{python}, args...)...)))

	exec := c.exec
	if exec == nil {
		exec = qa.RunCommand
	}
	out, code, err := exec(ctx, c.params.ProjectRoot(), python, args...)
	if err != nil {
		return qa.Fail(c.logger, err.Error())
	}
	if code != 0 {
		var errs []string
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if strings.TrimSpace(line) != "" {
				errs = append(errs, line)
			}
		}
		if len(errs) == 0 {
			errs = []string{fmt.Sprintf("Unknown error (rc = %d)", code)}
		}
		c.logger.Error("FAIL")
		for _, e := range errs {
			c.logger.Error(e)
		}
		return 1
	}
	c.logger.Info("PASS (documentation built)")
	return 0
}
