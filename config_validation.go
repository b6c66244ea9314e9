// config_validation.go: Whole-file validation of runner config files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

// ValidationResult reports every problem found in a config file.
type ValidationResult struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Entries  int      `json:"entries"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return fmt.Sprintf("%s: valid (%d entries)", vr.Path, vr.Entries)
		}
		return fmt.Sprintf("%s: valid with %d warning(s)", vr.Path, len(vr.Warnings))
	}
	return fmt.Sprintf("%s: invalid, %d error(s), %d warning(s)", vr.Path, len(vr.Errors), len(vr.Warnings))
}

// Err returns nil for valid results and a validation error otherwise.
func (vr ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return errors.New(ErrCodeValidation, vr.String()+": "+strings.Join(vr.Errors, "; ")).
		WithContext("path", vr.Path)
}

// ValidateConfigFile loads path and checks every entry against reg without
// resolving anything. Unlike a pipeline run, which stops at the first bad
// entry, it collects all problems. Entries that override nothing and runs
// with no build targets produce warnings.
func ValidateConfigFile(path string, reg *Registry) ValidationResult {
	res := ValidationResult{Path: path}
	file, err := LoadConfigFile(path)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	names := file.Names()
	res.Entries = len(names)
	for _, name := range names {
		entry, _ := file.Entry(name)
		if len(entry.Values) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("entry '%s' overrides nothing", name))
		}
		if err := reg.CheckEntry(entry.Values); err != nil {
			for _, e := range splitJoined(err) {
				res.Errors = append(res.Errors, fmt.Sprintf("entry '%s': %v", name, e))
			}
		}
	}
	if len(file.BuildTargets()) == 0 {
		res.Warnings = append(res.Warnings, "no entries ending in '"+BuildTargetSuffix+"': a build of all targets would do nothing")
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// GetValidationErrorCode extracts the code from an error string in the
// "[CODE]: Message" form, which also covers errors that lost their type
// while being joined or wrapped by foreign code.
func GetValidationErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := ErrorCode(err); code != "" {
		return code
	}
	errStr := err.Error()
	if len(errStr) > 3 && errStr[0] == '[' {
		if idx := strings.IndexByte(errStr, ']'); idx > 1 {
			return errStr[1:idx]
		}
	}
	return ""
}

// IsValidationError reports whether err is a schema or value validation
// failure, as opposed to an I/O or internal error.
func IsValidationError(err error) bool {
	switch GetValidationErrorCode(err) {
	case ErrCodeValidation, ErrCodeTypeMismatch, ErrCodeUnknownSetting, ErrCodeInternalSetting,
		ErrCodeIncompatibleVersion, ErrCodeInvalidConfig, ErrCodeEntryNotFound:
		return true
	}
	return false
}
