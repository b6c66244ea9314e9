// Utility functions for the daedalus CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/qa"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ExitError reports a command that ran but did not succeed. main exits
// with Code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// exitCode turns the exit code of a build run into the handler error.
func exitCode(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code, Message: fmt.Sprintf("build finished with exit code %d", code)}
}

// positionalArgs returns the arguments left once the command flags are
// parsed. ctx.Args still holds the flags.
func positionalArgs(ctx *orpheus.Context) []string {
	if ctx.Flags == nil {
		return nil
	}
	return ctx.Flags.Args()
}

// positionalArg returns positional argument i, or "" when absent.
func positionalArg(ctx *orpheus.Context, i int) string {
	if ctx.Flags == nil {
		return ""
	}
	return ctx.Flags.Arg(i)
}

// planErrors splits a joined planning error into one error per failed
// configuration.
func planErrors(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, planErrors(e)...)
	}
	return out
}

// logPlanError reports one failed configuration, telling invalid values
// apart from files that could not be read at all.
func logPlanError(logger *slog.Logger, err error) {
	code := daedalus.GetValidationErrorCode(err)
	if daedalus.IsValidationError(err) {
		logger.Error("invalid configuration", "code", code, "error", err.Error())
		return
	}
	logger.Error("configuration could not be loaded", "code", code, "error", err.Error())
}

// splitCSV splits a comma separated flag value, dropping empty elements.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

func settingKind(s qa.CheckSetting) string {
	var kind []string
	if s.Required {
		kind = append(kind, "required")
	}
	if s.List {
		kind = append(kind, "list")
	}
	if s.Pattern {
		kind = append(kind, "pattern")
	}
	return strings.Join(kind, ",")
}

func formatDefault(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var extendedDurationRe = regexp.MustCompile(`^(\d+)(d|w)$`)

// parseExtendedDuration parses duration strings with extended units (d, w).
// Supports all Go standard units (ns, us, ms, s, m, h) plus:
// - d: days (24 hours)
// - w: weeks (7 days)
//
// Examples: "30d", "2w", "7d", "24h", "5m", "30s"
func parseExtendedDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := extendedDurationRe.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, errors.New(daedalus.ErrCodeInvalidConfig, fmt.Sprintf("invalid duration: %q", s))
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, daedalus.ErrCodeInvalidConfig, "invalid duration value: "+matches[1])
	}

	if matches[2] == "w" {
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	}
	return time.Duration(value) * 24 * time.Hour, nil
}
