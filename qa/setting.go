// setting.go: Parameter schema of a check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

// CheckSetting declares one parameter of a check.
//
// The value is looked up as the command line flag "{check}_{name}", then in
// the config file under modules.{check}.{name}, then under defaults.{name},
// and finally taken from Default. List settings concatenate the command line
// value in front of the value found in the lower layers.
type CheckSetting struct {
	Name string

	// List settings take a YAML list or a comma separated flag value.
	List bool

	// Pattern settings hold gitignore-style patterns and are compiled to a
	// *PatternSet rooted at the project root.
	Pattern bool

	// Required settings without a value drop the check from the run.
	Required bool

	// Default is a string, a []string, or nil for no default. Keywords
	// such as ROOT are expanded.
	Default any

	// Message is the flag usage text.
	Message string
}

// FlagName returns the command line flag name of setting s of check.
func FlagName(check, setting string) string {
	return check + "_" + setting
}
