// errors.go: Error codes for the daedalus configuration core
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes returned by the daedalus packages. They are plain string
// constants so they can be handed straight to errors.New and errors.Wrap.
const (
	ErrCodeInvalidSetting      = "DAEDALUS_INVALID_SETTING"
	ErrCodeDuplicateSetting    = "DAEDALUS_DUPLICATE_SETTING"
	ErrCodeUnknownSetting      = "DAEDALUS_UNKNOWN_SETTING"
	ErrCodeInternalSetting     = "DAEDALUS_INTERNAL_SETTING"
	ErrCodeAlreadyResolved     = "DAEDALUS_ALREADY_RESOLVED"
	ErrCodeNotResolved         = "DAEDALUS_NOT_RESOLVED"
	ErrCodeMissingReference    = "DAEDALUS_MISSING_REFERENCE"
	ErrCodeResolution          = "DAEDALUS_RESOLUTION"
	ErrCodeValidation          = "DAEDALUS_VALIDATION"
	ErrCodeTypeMismatch        = "DAEDALUS_TYPE_MISMATCH"
	ErrCodeIncompatibleVersion = "DAEDALUS_INCOMPATIBLE_VERSION"
	ErrCodeEntryNotFound       = "DAEDALUS_ENTRY_NOT_FOUND"
	ErrCodeConfigNotFound      = "DAEDALUS_CONFIG_NOT_FOUND"
	ErrCodeInvalidConfig       = "DAEDALUS_INVALID_CONFIG"
	ErrCodeUnsupportedFormat   = "DAEDALUS_UNSUPPORTED_FORMAT"
	ErrCodeIO                  = "DAEDALUS_IO_ERROR"
	ErrCodeInvalidAuditConfig  = "DAEDALUS_INVALID_AUDIT_CONFIG"
	ErrCodeAuditBackend        = "DAEDALUS_AUDIT_BACKEND"
)

// ErrorCode returns the code carried by err or by the first error in its
// chain that has one. It returns "" for foreign errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if ec, ok := err.(errors.ErrorCoder); ok {
		return string(ec.ErrorCode())
	}
	var ec errors.ErrorCoder
	if goerrors.As(err, &ec) {
		return string(ec.ErrorCode())
	}
	return ""
}

// HasCode reports whether err, or any error joined into it, carries code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if ErrorCode(err) == code {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	}
	if inner := goerrors.Unwrap(err); inner != nil && inner != err {
		return HasCode(inner, code)
	}
	return false
}

// IsDaedalusError reports whether err was produced by this module.
func IsDaedalusError(err error) bool {
	code := ErrorCode(err)
	return len(code) > len("DAEDALUS_") && code[:len("DAEDALUS_")] == "DAEDALUS_"
}
