// setting.go: Declarative description of a single configuration value
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

// ResolveFunc turns the raw value of a setting into its final form. It runs
// during Resolve and may read, through cfg.Value, only the settings declared
// before the one being resolved.
type ResolveFunc func(cfg *ResolvedConfig, raw any) (any, error)

// Setting declares one configurable value.
//
// Default is either a literal or a string containing {name} placeholders,
// expanded by a resolve function such as Template or Path. Help may reference
// the defaults of other settings with the same placeholder syntax.
type Setting struct {
	Name string

	// Default is the value used when no layer overrides the setting.
	Default any

	// Positional settings are taken from command line arguments rather
	// than from a named flag.
	Positional bool

	// Internal settings are computed during resolution and can never be
	// overridden by a config file, the environment or the command line.
	Internal bool

	// List settings hold a []string.
	List bool

	Resolve ResolveFunc
	Help    string
}

func (s Setting) resolve(cfg *ResolvedConfig, raw any) (any, error) {
	if s.Resolve == nil {
		return raw, nil
	}
	return s.Resolve(cfg, raw)
}
