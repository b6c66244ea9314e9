// doc.go: Package documentation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package qa dispatches quality-assurance checks over a project tree.
//
// A check is a Plugin declaring its parameters as CheckSetting values. For
// each selected plugin the Resolver merges the "{check}_{setting}" command
// line flag, the modules and defaults sections of the check config file and
// the setting default, expands the ROOT and GITIGNORE_CONTENTS keywords and
// compiles pattern settings. Checks missing a required parameter are
// dropped with a warning. The Dispatcher runs the rest on a bounded pool and
// reports
//
//	Ran N checks of which M failed (names). Exit code: X.
//
// where X is the bitwise OR of all check results.
//
// Basic usage:
//
//	keywords := daedalus.NewKeywordCache(root, logger)
//	d := &qa.Dispatcher{
//		Registry: checks.Registry(),
//		Resolver: &qa.Resolver{Config: cfg, CLI: flags, Keywords: keywords, Logger: logger},
//		Logger:   logger,
//	}
//	summary, err := d.Run(ctx, []string{"all"})
//	os.Exit(summary.ExitCode)
package qa
