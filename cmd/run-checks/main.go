// run-checks: QA check dispatcher entry point
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/checks"
	"github.com/agilira/daedalus/internal/cli"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.RunChecks{Registry: checks.Registry()}

	auditConfig, err := daedalus.AuditConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit disabled: %v\n", err)
	} else if auditConfig.Enabled {
		auditLogger, err := daedalus.NewAuditLogger(auditConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit disabled: %v\n", err)
		} else {
			cmd.Audit = auditLogger
			defer func() { _ = auditLogger.Close() }()
		}
	}

	return cmd.Run(ctx, args)
}
