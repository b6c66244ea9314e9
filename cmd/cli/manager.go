// Package cli provides the daedalus command line interface.
//
// The Manager wires the runner and the QA checks to Orpheus commands:
//
//	daedalus build [kasfile...|all] [--config file[:entry]] [--list-configs] [--dry-run] [--print]
//	daedalus config list|validate|show|init
//	daedalus checks list
//	daedalus audit query|stats|cleanup
//
// Every runner setting is also a flag of the build command.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/runner"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Version of the daedalus command.
const Version = "1.0.0"

// Manager owns the Orpheus application and the collaborators of its
// handlers.
type Manager struct {
	app         *orpheus.App
	auditLogger *daedalus.AuditLogger // Optional audit integration
	logger      *slog.Logger
	out         io.Writer
	executor    runner.Executor
	registry    *daedalus.Registry
	environ     func() []string
	handlerErr  error
}

// NewManager creates the CLI with every command group registered.
func NewManager() *Manager {
	app := orpheus.New("daedalus").
		SetDescription("Layered configuration for kas container builds and QA checks").
		SetVersion(Version)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(daedalus.GetEnvWithDefault("DAEDALUS_LOG_LEVEL", "info")),
	}))

	manager := &Manager{
		app:      app,
		logger:   logger,
		out:      os.Stdout,
		registry: daedalus.MustRegistry(logger, runner.Settings()...),
		environ:  os.Environ,
	}

	manager.setupBuildCommand()
	manager.setupConfigCommands()
	manager.setupChecksCommands()
	manager.setupAuditCommands()

	return manager
}

// WithAudit records resolutions and builds in auditLogger and enables the
// audit commands.
func (m *Manager) WithAudit(auditLogger *daedalus.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithOutput redirects command output, which goes to stdout by default.
func (m *Manager) WithOutput(w io.Writer) *Manager {
	m.out = w
	return m
}

// WithLogger replaces the stderr logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// WithExecutor replaces the container engine executor of build runs.
func (m *Manager) WithExecutor(e runner.Executor) *Manager {
	m.executor = e
	return m
}

// WithEnviron replaces the environment consulted for DAEDALUS_* overrides.
func (m *Manager) WithEnviron(environ []string) *Manager {
	m.environ = func() []string { return environ }
	return m
}

// Run executes the command in args. A build or validation that fails
// returns an *ExitError carrying the exit code. Handler errors are returned
// as the handler produced them.
func (m *Manager) Run(args []string) error {
	m.handlerErr = nil
	err := m.app.Run(args)
	if m.handlerErr != nil {
		return m.handlerErr
	}
	return err
}

// handle records the error of h for Run.
func (m *Manager) handle(h func(*orpheus.Context) error) func(*orpheus.Context) error {
	return func(ctx *orpheus.Context) error {
		err := h(ctx)
		m.handlerErr = err
		return err
	}
}

// setupBuildCommand registers 'build' with one flag per runner setting.
func (m *Manager) setupBuildCommand() {
	buildCmd := orpheus.NewCommand("build", "Build kas configurations in a container (use 'all' for every build target)")
	buildCmd.SetHandler(m.handle(m.handleBuild))
	buildCmd.AddFlag("config", "c", "", "Runner config file, optionally followed by ':entry'")
	buildCmd.AddBoolFlag("list-configs", "l", false, "List the build targets of the runner config file and exit")
	buildCmd.AddBoolFlag("dry-run", "n", false, "Print the container commands instead of running them")
	buildCmd.AddBoolFlag("print", "p", false, "Print the resolved settings of every task")

	for _, spec := range m.registry.FlagSpecs() {
		switch {
		case spec.Positional:
			continue
		case spec.Bool:
			buildCmd.AddBoolFlag(spec.Name, "", false, spec.Usage)
		default:
			buildCmd.AddFlag(spec.Name, "", "", spec.Usage)
		}
	}

	m.app.AddCommand(buildCmd)
}

// setupConfigCommands configures the 'config' command group for runner
// config files.
func (m *Manager) setupConfigCommands() {
	configCmd := orpheus.NewCommand("config", "Runner config file operations")

	// config list <file>
	configCmd.Subcommand("list", "List the entries of a runner config file", m.handle(m.handleConfigList))

	// config validate <file>
	configCmd.Subcommand("validate", "Validate every entry of a runner config file", m.handle(m.handleConfigValidate))

	// config show <file[:entry]> [--format=yaml]
	showCmd := configCmd.Subcommand("show", "Resolve an entry and print its settings", m.handle(m.handleConfigShow))
	showCmd.AddFlag("format", "f", "yaml", "Output format (yaml|json|toml)")

	// config init <file> [--entry=default-build]
	initCmd := orpheus.NewCommand("init", "Create a runner config file holding the defaults").
		AddFlag("entry", "e", "default-build", "Name of the generated entry").
		SetHandler(m.handle(m.handleConfigInit))
	configCmd.AddSubcommand(initCmd)

	m.app.AddCommand(configCmd)
}

// setupChecksCommands configures the 'checks' command group.
func (m *Manager) setupChecksCommands() {
	checksCmd := orpheus.NewCommand("checks", "QA check information")
	listCmd := checksCmd.Subcommand("list", "List the available checks and their parameters", m.handle(m.handleChecksList))
	listCmd.AddBoolFlag("verbose", "v", false, "Show every parameter with its description")
	m.app.AddCommand(checksCmd)
}

// setupAuditCommands configures the 'audit' command group.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit log management")

	queryCmd := auditCmd.Subcommand("query", "Query audit logs", m.handle(m.handleAuditQuery))
	queryCmd.AddFlag("since", "s", "24h", "Time range (e.g., 24h, 7d, 2w)")
	queryCmd.AddFlag("event", "e", "", "Event type filter")
	queryCmd.AddFlag("component", "c", "", "Component filter (runner|qa|config)")
	queryCmd.AddFlag("target", "t", "", "Target filter (task, check or config)")
	queryCmd.AddFlag("run", "r", "", "Run ID filter")
	queryCmd.AddBoolFlag("failed", "", false, "Only events with a non-zero exit code")
	queryCmd.AddIntFlag("limit", "l", 100, "Maximum results")

	auditCmd.Subcommand("stats", "Show audit store statistics", m.handle(m.handleAuditStats))

	cleanupCmd := auditCmd.Subcommand("cleanup", "Cleanup old audit logs", m.handle(m.handleAuditCleanup))
	cleanupCmd.AddFlag("older-than", "o", "30d", "Delete entries older than")
	cleanupCmd.AddBoolFlag("dry-run", "d", false, "Show what would be deleted")

	m.app.AddCommand(auditCmd)
}
