// dispatcher.go: Running the selected checks in parallel
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/agilira/daedalus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one check.
type Result struct {
	Name     string
	ExitCode int
	Skipped  bool
	Panicked bool
}

// Summary is the outcome of a run.
type Summary struct {
	// Results holds one entry per check that ran or was skipped, in
	// selection order.
	Results []Result

	// Dropped lists checks left out for missing required parameters.
	Dropped []string

	// ExitCode is the bitwise OR of all results.
	ExitCode int
}

// Failed returns the sorted names of the failed checks.
func (s Summary) Failed() []string {
	var out []string
	for _, r := range s.Results {
		if r.ExitCode != 0 {
			out = append(out, r.Name)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// String renders the summary line.
func (s Summary) String() string {
	failed := s.Failed()
	list := ""
	if len(failed) > 0 {
		list = " (" + strings.Join(failed, ",") + ")"
	}
	return fmt.Sprintf("Ran %d checks of which %d failed%s. Exit code: %d.",
		len(s.Results), len(failed), list, s.ExitCode)
}

// Dispatcher resolves, instantiates and runs checks.
type Dispatcher struct {
	Registry *Registry
	Resolver *Resolver

	// Logger receives the dispatcher's own messages and is handed to each
	// check with a "check" attribute.
	Logger *slog.Logger

	// Jobs bounds the number of checks running at once. Zero means one
	// per CPU.
	Jobs int

	// Audit records every result when set.
	Audit *daedalus.AuditLogger

	// Setup runs once the parameters are resolved and before any check
	// starts, typically to install dependencies. The checks it returns
	// count as failures and are never instantiated. An error aborts the
	// run.
	Setup func(ctx context.Context, ready []Prepared) (skipped []string, err error)
}

// Prepared is a check ready to run.
type Prepared struct {
	Plugin Plugin
	Params Params
}

// Plan selects the requested checks and resolves their parameters. Checks
// missing a required parameter are returned in dropped.
func (d *Dispatcher) Plan(requested []string) (ready []Prepared, dropped []string, err error) {
	var defaultExclude []string
	if d.Resolver.Config != nil {
		defaultExclude = d.Resolver.Config.DefaultExclude
	}
	plugins, err := d.Registry.Select(requested, defaultExclude)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range plugins {
		params, ok, err := d.Resolver.Resolve(p)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			dropped = append(dropped, p.Name())
			continue
		}
		ready = append(ready, Prepared{Plugin: p, Params: params})
	}
	return ready, dropped, nil
}

// Run plans, sets up and runs the requested checks. The error is non-nil
// only when the run could not start.
func (d *Dispatcher) Run(ctx context.Context, requested []string) (Summary, error) {
	ready, dropped, err := d.Plan(requested)
	if err != nil {
		return Summary{ExitCode: 1}, err
	}

	var skipped []string
	if d.Setup != nil {
		if skipped, err = d.Setup(ctx, ready); err != nil {
			return Summary{ExitCode: 1}, err
		}
	}

	summary := Summary{Dropped: dropped}
	var runnable []Prepared
	for _, prep := range ready {
		if slices.Contains(skipped, prep.Plugin.Name()) {
			summary.Results = append(summary.Results, Result{Name: prep.Plugin.Name(), ExitCode: 1, Skipped: true})
			continue
		}
		runnable = append(runnable, prep)
	}
	return d.execute(ctx, runnable, summary), nil
}

// execute runs ready on the pool and completes base with the results.
func (d *Dispatcher) execute(ctx context.Context, ready []Prepared, base Summary) Summary {
	logger := d.logger()
	summary := base

	if len(ready) == 0 && len(summary.Results) == 0 {
		logger.Info("Found no requested checks to run.")
		return summary
	}

	results := make([]Result, len(ready))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.jobs(len(ready)))
	for i, prep := range ready {
		g.Go(func() error {
			results[i] = d.runOne(gctx, prep)
			return nil
		})
	}
	_ = g.Wait()

	summary.Results = append(summary.Results, results...)
	for _, r := range summary.Results {
		summary.ExitCode |= r.ExitCode
		d.Audit.LogCheck(r.Name, r.ExitCode, r.Skipped)
	}

	line := summary.String()
	if summary.ExitCode != 0 {
		logger.Warn(line)
	} else {
		logger.Info(line)
	}
	d.Audit.LogRun("qa", line, summary.ExitCode)
	return summary
}

// runOne instantiates and runs one check. A panic is a failure.
func (d *Dispatcher) runOne(ctx context.Context, prep Prepared) (res Result) {
	name := prep.Plugin.Name()
	logger := d.logger().With("check", name)
	res.Name = name

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("caught panic when executing the %s check: %v", name, r),
				"stack", string(debug.Stack()))
			res.ExitCode = 1
			res.Panicked = true
		}
	}()

	logger.Debug("running check", "params", prep.Params)
	check := prep.Plugin.New(logger, prep.Params)
	res.ExitCode = check.Run(ctx)
	return res
}

func (d *Dispatcher) jobs(n int) int {
	jobs := d.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	return max(1, min(jobs, n))
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Dependencies collects the packages each prepared check needs.
func Dependencies(ready []Prepared) map[string][]string {
	deps := make(map[string][]string)
	for _, prep := range ready {
		if d := prep.Plugin.Dependencies(); len(d) > 0 {
			deps[prep.Plugin.Name()] = slices.Clone(d)
		}
	}
	return deps
}
