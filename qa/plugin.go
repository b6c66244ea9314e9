// plugin.go: Check plugin contract
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"context"
	"log/slog"
)

// Plugin describes a check and builds instances of it.
type Plugin interface {
	// Name identifies the check on the command line and in config files.
	Name() string

	// Settings returns the parameter schema, in flag order.
	Settings() []CheckSetting

	// Dependencies lists the Python packages the check needs installed.
	Dependencies() []string

	// New builds a check from fully resolved parameters. params always
	// carries ProjectRootParam.
	New(logger *slog.Logger, params Params) Check
}

// Check is one instantiated check. Run returns 0 on success. Expected
// failures are reported through the logger and a non-zero result.
type Check interface {
	Run(ctx context.Context) int
}

// CheckFunc adapts a function to Check.
type CheckFunc func(ctx context.Context) int

// Run calls f(ctx).
func (f CheckFunc) Run(ctx context.Context) int { return f(ctx) }
