// daedalus: command line entry point
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	goerrors "errors"
	"fmt"
	"os"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/cmd/cli"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the exit code so that deferred cleanup runs before the
// process exits.
func realMain(args []string) int {
	manager := cli.NewManager()

	auditConfig, err := daedalus.AuditConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit disabled: %v\n", err)
	} else if auditConfig.Enabled {
		auditLogger, err := daedalus.NewAuditLogger(auditConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit disabled: %v\n", err)
		} else {
			manager.WithAudit(auditLogger)
			defer func() { _ = auditLogger.Close() }()
		}
	}

	err = manager.Run(args)
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if goerrors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr)
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
