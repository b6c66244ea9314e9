// checks.go: Plugin definitions shared by the QA checks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"log/slog"
	"os"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/qa"
)

// Parameter names shared by several checks.
const (
	ParamPaths           = "paths"
	ParamExcludePatterns = "exclude_patterns"
	ParamIncludePatterns = "include_patterns"
	ParamFileTypes       = "file_types"
)

const notFound = "File or directory not found."

// definition implements qa.Plugin from a static description.
type definition struct {
	name     string
	settings []qa.CheckSetting
	deps     []string
	build    func(logger *slog.Logger, params qa.Params) qa.Check
}

func (d *definition) Name() string { return d.name }
func (d *definition) Settings() []qa.CheckSetting { return d.settings }
func (d *definition) Dependencies() []string { return d.deps }
func (d *definition) New(logger *slog.Logger, params qa.Params) qa.Check {
	return d.build(logger, params)
}

// All returns every check in the order they run and are listed.
func All() []qa.Plugin {
	return []qa.Plugin{
		CommitMsg(),
		Header(),
		Inclusivity(),
		Spell(),
		Shell(),
		Python(),
		YAML(),
		Layer(),
		DocBuild(),
	}
}

// Registry returns a registry holding All.
func Registry() *qa.Registry {
	return qa.MustRegistry(All()...)
}

func pathsSetting() qa.CheckSetting {
	return qa.CheckSetting{
		Name:    ParamPaths,
		List:    true,
		Default: []string{daedalus.KeywordRoot},
		Message: "File paths to check, or directories to recurse. Relative paths are relative to project_root.",
	}
}

func excludeSetting() qa.CheckSetting {
	return qa.CheckSetting{
		Name:    ParamExcludePatterns,
		List:    true,
		Pattern: true,
		Default: []string{daedalus.KeywordGitignoreContents, "*.git"},
		Message: "Patterns where if any is matched with the file/directory name, the check will not be applied to it or continue into its subpaths.",
	}
}

func fileTypesSetting(def ...string) qa.CheckSetting {
	return qa.CheckSetting{
		Name:    ParamFileTypes,
		List:    true,
		Default: def,
		Message: "Only files whose file type description contains one of these substrings are checked.",
	}
}

// walkPaths runs fn on every file below the paths parameter that passes
// the exclude, include and file type parameters present in params.
func walkPaths(params qa.Params, report *qa.Report, fn func(path string)) {
	opts := qa.WalkOptions{
		Exclude:   params.Patterns(ParamExcludePatterns),
		Include:   params.Patterns(ParamIncludePatterns),
		FileTypes: params.Strings(ParamFileTypes),
	}
	for _, p := range params.Strings(ParamPaths) {
		abs := params.Abs(p)
		if _, err := os.Stat(abs); err != nil {
			report.Add(abs, notFound)
			continue
		}
		qa.Walk(abs, opts, report, fn)
	}
}
