// exec.go: Running external tools from checks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"bytes"
	"context"
	goerrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// VenvBinEnv names the environment variable pointing at the bin directory
// of the Python virtual environment prepared for the checks.
const VenvBinEnv = "VENV_BIN"

// CommandFunc runs an external command and returns its combined output and
// exit code. err is set only when the command could not be started. Checks
// hold one so tests can substitute the tool.
type CommandFunc func(ctx context.Context, dir, name string, args ...string) (output string, exitCode int, err error)

// RunCommand is the CommandFunc that executes name for real.
func RunCommand(ctx context.Context, dir, name string, args ...string) (string, int, error) {
	// #nosec G204 -- checks run the tools they were configured with
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out.String(), 0, nil
	case goerrors.As(err, &exitErr):
		return out.String(), exitErr.ExitCode(), nil
	default:
		return out.String(), -1, errors.Wrap(err, ErrCodeCommandNotFound, "cannot run '"+name+"'").
			WithContext("command", name)
	}
}

// FindExecutable returns the path of name, preferring the virtual
// environment bin directory when VENV_BIN is set. It returns "" when the
// executable cannot be found.
func FindExecutable(logger *slog.Logger, name string) string {
	if bin := os.Getenv(VenvBinEnv); bin != "" {
		candidate := filepath.Join(bin, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return candidate
		}
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("executable not found in the virtual environment, using the host version",
				"executable", name, "path", path)
			return path
		}
		return ""
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}
