// utils.go: Helpers of the run-checks command
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/agilira/daedalus/qa"
	"github.com/agilira/go-errors"
	"github.com/jedib0t/go-pretty/v6/table"
)

// extractRepeated removes every --name=value and --name value pair from
// args and returns the values in order with the remaining arguments.
// flash-flags keeps only the last value of a repeated flag.
func extractRepeated(args []string, name string) (values, rest []string) {
	long := "--" + name
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			rest = append(rest, args[i:]...)
			return values, rest
		case strings.HasPrefix(arg, long+"="):
			values = append(values, strings.TrimPrefix(arg, long+"="))
		case arg == long && i+1 < len(args):
			values = append(values, args[i+1])
			i++
		default:
			rest = append(rest, arg)
		}
	}
	return values, rest
}

func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	default:
		return slog.LevelInfo, errors.New(ErrCodeUsage, fmt.Sprintf("invalid log level %q (want debug, info or warning)", name))
	}
}

// checksTable renders the registered checks with their flags.
func checksTable(reg *qa.Registry) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Flags", "Dependencies"})
	for _, p := range reg.Plugins() {
		flags := make([]string, 0, len(p.Settings()))
		for _, s := range p.Settings() {
			flags = append(flags, "--"+qa.FlagName(p.Name(), s.Name))
		}
		t.AppendRow(table.Row{p.Name(), strings.Join(flags, "\n"), strings.Join(p.Dependencies(), ", ")})
	}
	return t.Render()
}

// printParams writes the resolved parameters of every ready check.
func printParams(w io.Writer, ready []qa.Prepared, dropped []string) {
	for _, prep := range ready {
		_, _ = fmt.Fprintf(w, "%s:\n", prep.Plugin.Name())
		keys := make([]string, 0, len(prep.Params))
		for k := range prep.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", k, formatParam(prep.Params[k]))
		}
	}
	for _, name := range dropped {
		_, _ = fmt.Fprintf(w, "%s: skipped, missing required parameters\n", name)
	}
}

func formatParam(v any) string {
	switch t := v.(type) {
	case *qa.PatternSet:
		return "[" + strings.Join(t.Sources(), ", ") + "]"
	case []string:
		return "[" + strings.Join(t, ", ") + "]"
	default:
		return fmt.Sprint(t)
	}
}
