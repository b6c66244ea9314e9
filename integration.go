// integration.go: Binding registry settings to flash-flags
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	flashflags "github.com/agilira/flash-flags"
)

// NegatedPrefix is prepended to a bool setting name to form its "off" flag.
const NegatedPrefix = "no_"

// BindFlags declares one flag per spec on fs. Positional specs are skipped.
// String and list flags default to "" so that an unset flag can be told
// apart from an explicit value. Bool settings get a pair of flags, name and
// no_name, for the same reason.
func BindFlags(fs *flashflags.FlagSet, specs []FlagSpec) {
	for _, spec := range specs {
		switch {
		case spec.Positional:
			continue
		case spec.Bool:
			fs.Bool(spec.Name, false, spec.Usage)
			fs.Bool(NegatedPrefix+spec.Name, false, "Disable "+spec.Name)
		case spec.List:
			fs.String(spec.Name, "", "Comma-separated list: "+spec.Usage)
		default:
			fs.String(spec.Name, "", spec.Usage)
		}
	}
}

// FlagValues reads back the flags declared by BindFlags. Only flags that
// were given a value appear in the result; lists are split on commas.
func FlagValues(fs *flashflags.FlagSet, specs []FlagSpec) map[string]any {
	out := make(map[string]any)
	for _, spec := range specs {
		switch {
		case spec.Positional:
			continue
		case spec.Bool:
			if fs.GetBool(spec.Name) {
				out[spec.Name] = true
			} else if fs.GetBool(NegatedPrefix + spec.Name) {
				out[spec.Name] = false
			}
		case spec.List:
			if v := fs.GetString(spec.Name); v != "" {
				out[spec.Name] = splitList(v)
			}
		default:
			if v := fs.GetString(spec.Name); v != "" {
				out[spec.Name] = v
			}
		}
	}
	return out
}

// HelpRequested reports whether args ask for usage. flash-flags prints help
// itself; callers check first so help is printed once and exits cleanly.
func HelpRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
