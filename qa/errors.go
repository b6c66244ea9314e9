// errors.go: Error codes of the check dispatcher
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

// Error codes for check selection, parameter resolution and dependency
// preparation.
const (
	ErrCodeDuplicateCheck  = "DAEDALUS_DUPLICATE_CHECK"
	ErrCodeInvalidCheck    = "DAEDALUS_INVALID_CHECK"
	ErrCodeUnknownCheck    = "DAEDALUS_UNKNOWN_CHECK"
	ErrCodeInvalidPattern  = "DAEDALUS_INVALID_PATTERN"
	ErrCodeCheckConfig     = "DAEDALUS_CHECK_CONFIG_ERROR"
	ErrCodeDependency      = "DAEDALUS_DEPENDENCY_ERROR"
	ErrCodeCommandNotFound = "DAEDALUS_COMMAND_NOT_FOUND"
)
