// Command handlers for the daedalus CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/checks"
	"github.com/agilira/daedalus/qa"
	"github.com/agilira/daedalus/runner"
	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/jedib0t/go-pretty/v6/table"
)

// handleBuild plans the requested builds and runs them one after the other.
func (m *Manager) handleBuild(ctx *orpheus.Context) error {
	cli := m.buildFlagValues(ctx)
	if kasFiles := positionalArgs(ctx); len(kasFiles) > 0 {
		cli[runner.SettingKasFile] = kasFiles
	}
	configRef := ctx.GetFlagString("config")
	planner := &runner.Planner{Registry: m.registry, Logger: m.logger}

	if ctx.GetFlagBool("list-configs") {
		if configRef == "" {
			configRef = planner.DefaultConfig(cli)
		}
		targets, err := runner.ListConfigs(configRef)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(m.out, runner.FormatTargets(targets))
		return nil
	}

	tasks, planErr := planner.Plan(runner.Request{
		ConfigRef: configRef,
		CLI:       cli,
		Environ:   m.environ(),
		EnvPrefix: daedalus.DefaultEnvPrefix,
	})
	for _, task := range tasks {
		m.auditLogger.LogResolution(task.Name, task.Config.Values(), nil)
	}
	if planErr != nil {
		// Nothing is built unless every requested configuration resolved.
		m.auditLogger.LogResolution(configRef, nil, planErr)
		m.logger.Error("build configurations failed to resolve, nothing was built",
			"failed", len(planErrors(planErr)), "resolved", len(tasks))
		for _, err := range planErrors(planErr) {
			logPlanError(m.logger, err)
		}
		return planErr
	}

	dryRun := ctx.GetFlagBool("dry-run")
	if dryRun || ctx.GetFlagBool("print") {
		if err := m.printTasks(tasks, daedalus.FormatYAML); err != nil {
			return err
		}
		if !dryRun {
			return nil
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner.Runner{
		Logger:   m.logger,
		Stdout:   m.out,
		Executor: m.executor,
		Audit:    m.auditLogger,
		DryRun:   dryRun,
	}
	return exitCode(r.Run(runCtx, tasks))
}

// buildFlagValues collects the runner setting flags that were given.
func (m *Manager) buildFlagValues(ctx *orpheus.Context) map[string]any {
	values := make(map[string]any)
	for _, spec := range m.registry.FlagSpecs() {
		switch {
		case spec.Positional:
			continue
		case spec.Bool:
			if ctx.GetFlagBool(spec.Name) {
				values[spec.Name] = true
			}
		case spec.List:
			if v := ctx.GetFlagString(spec.Name); v != "" {
				values[spec.Name] = splitCSV(v)
			}
		default:
			if v := ctx.GetFlagString(spec.Name); v != "" {
				values[spec.Name] = v
			}
		}
	}
	return values
}

func (m *Manager) printTasks(tasks []runner.Task, format daedalus.ConfigFormat) error {
	for _, task := range tasks {
		_, _ = fmt.Fprintf(m.out, "# %s\n", task.Name)
		if err := daedalus.WriteResolved(m.out, task.Config, format); err != nil {
			return err
		}
	}
	return nil
}

// handleConfigList prints the entries of a runner config file.
func (m *Manager) handleConfigList(ctx *orpheus.Context) error {
	filePath := positionalArg(ctx, 0)
	if filePath == "" {
		return errors.New(daedalus.ErrCodeInvalidConfig, "missing config file argument")
	}

	file, err := daedalus.LoadConfigFile(filePath)
	if err != nil {
		return err
	}

	targets := make(map[string]bool)
	for _, name := range file.BuildTargets() {
		targets[name] = true
	}

	t := newTable()
	t.AppendHeader(table.Row{"Entry", "Build target", "Settings"})
	for _, name := range file.Names() {
		entry, err := file.Entry(name)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(entry.Values))
		for k := range entry.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		target := ""
		if targets[name] {
			target = "yes"
		}
		t.AppendRow(table.Row{name, target, strings.Join(keys, ", ")})
	}

	_, _ = fmt.Fprintf(m.out, "Config entries in %s (version %d):\n", filePath, file.Version)
	_, _ = fmt.Fprintln(m.out, t.Render())
	return nil
}

// handleConfigValidate checks every entry of a runner config file against
// the runner settings.
func (m *Manager) handleConfigValidate(ctx *orpheus.Context) error {
	filePath := positionalArg(ctx, 0)
	if filePath == "" {
		return errors.New(daedalus.ErrCodeInvalidConfig, "missing config file argument")
	}

	res := daedalus.ValidateConfigFile(filePath, m.registry)
	_, _ = fmt.Fprintln(m.out, res.String())
	for _, e := range res.Errors {
		_, _ = fmt.Fprintf(m.out, "  error: %s\n", e)
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintf(m.out, "  warning: %s\n", w)
	}
	return res.Err()
}

// handleConfigShow resolves an entry, plus any kas files given after it,
// and prints the resulting settings.
func (m *Manager) handleConfigShow(ctx *orpheus.Context) error {
	ref := positionalArg(ctx, 0)
	if ref == "" {
		return errors.New(daedalus.ErrCodeInvalidConfig, "missing config reference argument")
	}
	format := daedalus.ParseFormat(ctx.GetFlagString("format"))
	if format == daedalus.FormatUnknown {
		return errors.New(daedalus.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format: %s", ctx.GetFlagString("format")))
	}

	cli := make(map[string]any)
	if kasFiles := positionalArgs(ctx)[1:]; len(kasFiles) > 0 {
		cli[runner.SettingKasFile] = kasFiles
	}
	planner := &runner.Planner{Registry: m.registry, Logger: m.logger}
	tasks, err := planner.Plan(runner.Request{
		ConfigRef: ref,
		CLI:       cli,
		Environ:   m.environ(),
		EnvPrefix: daedalus.DefaultEnvPrefix,
	})
	for _, task := range tasks {
		m.auditLogger.LogResolution(task.Name, task.Config.Values(), nil)
	}
	if err != nil {
		m.auditLogger.LogResolution(ref, nil, err)
		return err
	}
	return m.printTasks(tasks, format)
}

// handleConfigInit writes a version 1 runner config file holding the
// setting defaults.
func (m *Manager) handleConfigInit(ctx *orpheus.Context) error {
	filePath := positionalArg(ctx, 0)
	if filePath == "" {
		return errors.New(daedalus.ErrCodeInvalidConfig, "missing config file argument")
	}
	entry := ctx.GetFlagString("entry")
	if entry == "" {
		entry = "default" + daedalus.BuildTargetSuffix
	}

	if err := daedalus.WriteConfigTemplate(filePath, m.registry, entry); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(m.out, "Created %s configuration: %s\n", daedalus.DetectFormat(filePath), filePath)
	_, _ = fmt.Fprintf(m.out, "Entry: %s\n", entry)
	return nil
}

// handleChecksList prints the registered checks.
func (m *Manager) handleChecksList(ctx *orpheus.Context) error {
	reg := checks.Registry()
	t := newTable()

	if ctx.GetFlagBool("verbose") {
		t.AppendHeader(table.Row{"Check", "Flag", "Kind", "Default", "Description"})
		for _, p := range reg.Plugins() {
			for _, s := range p.Settings() {
				t.AppendRow(table.Row{p.Name(), "--" + qa.FlagName(p.Name(), s.Name), settingKind(s), formatDefault(s.Default), s.Message})
			}
		}
	} else {
		t.AppendHeader(table.Row{"Check", "Parameters", "Dependencies"})
		for _, p := range reg.Plugins() {
			names := make([]string, 0, len(p.Settings()))
			for _, s := range p.Settings() {
				names = append(names, s.Name)
			}
			t.AppendRow(table.Row{p.Name(), strings.Join(names, ", "), strings.Join(p.Dependencies(), ", ")})
		}
	}

	_, _ = fmt.Fprintln(m.out, t.Render())
	return nil
}

// handleAuditQuery prints the audit events matching the filters.
func (m *Manager) handleAuditQuery(ctx *orpheus.Context) error {
	if m.auditLogger == nil {
		return errors.New(daedalus.ErrCodeInvalidAuditConfig, "audit logging not enabled")
	}

	since, err := parseExtendedDuration(ctx.GetFlagString("since"))
	if err != nil {
		return errors.Wrap(err, daedalus.ErrCodeInvalidConfig, "invalid --since value")
	}

	events, err := m.auditLogger.Query(daedalus.AuditFilter{
		RunID:      ctx.GetFlagString("run"),
		Event:      ctx.GetFlagString("event"),
		Component:  ctx.GetFlagString("component"),
		Target:     ctx.GetFlagString("target"),
		Since:      timecache.CachedTime().Add(-since),
		FailedOnly: ctx.GetFlagBool("failed"),
		Limit:      ctx.GetFlagInt("limit"),
	})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		_, _ = fmt.Fprintln(m.out, "No audit events found")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Time", "Run", "Level", "Event", "Component", "Target", "Exit"})
	for _, e := range events {
		t.AppendRow(table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shortID(e.RunID), e.Level, e.Event, e.Component, e.Target, e.ExitCode,
		})
	}
	_, _ = fmt.Fprintln(m.out, t.Render())
	return nil
}

// handleAuditStats prints a summary of the audit store.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	if m.auditLogger == nil {
		return errors.New(daedalus.ErrCodeInvalidAuditConfig, "audit logging not enabled")
	}

	stats, err := m.auditLogger.Stats()
	if err != nil {
		return err
	}

	t := newTable()
	t.AppendRow(table.Row{"Backend", stats.Backend})
	t.AppendRow(table.Row{"Path", stats.Path})
	t.AppendRow(table.Row{"Events", stats.TotalEvents})
	t.AppendRow(table.Row{"Failed events", stats.FailedEvents})
	t.AppendRow(table.Row{"Runs", stats.Runs})
	if stats.OldestEvent != nil {
		t.AppendRow(table.Row{"Oldest", stats.OldestEvent.Local().Format("2006-01-02 15:04:05")})
	}
	if stats.NewestEvent != nil {
		t.AppendRow(table.Row{"Newest", stats.NewestEvent.Local().Format("2006-01-02 15:04:05")})
	}
	for _, k := range sortedKeys(stats.EventsByComponent) {
		t.AppendRow(table.Row{"Component " + k, stats.EventsByComponent[k]})
	}
	t.AppendRow(table.Row{"Size (bytes)", stats.SizeBytes})
	_, _ = fmt.Fprintln(m.out, t.Render())
	return nil
}

// handleAuditCleanup removes old audit log entries.
func (m *Manager) handleAuditCleanup(ctx *orpheus.Context) error {
	if m.auditLogger == nil {
		return errors.New(daedalus.ErrCodeInvalidAuditConfig, "audit logging not enabled")
	}

	olderThan, err := parseExtendedDuration(ctx.GetFlagString("older-than"))
	if err != nil {
		return errors.Wrap(err, daedalus.ErrCodeInvalidConfig, "invalid --older-than value")
	}
	days := int(math.Ceil(olderThan.Hours() / 24))
	if days < 1 {
		return errors.New(daedalus.ErrCodeInvalidConfig, "--older-than must be at least one day")
	}

	if ctx.GetFlagBool("dry-run") {
		_, _ = fmt.Fprintf(m.out, "Would delete audit events older than %d days\n", days)
		return nil
	}
	if err := m.auditLogger.Cleanup(days); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(m.out, "Deleted audit events older than %d days\n", days)
	return nil
}
