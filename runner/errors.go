// errors.go: Error codes of the build runner
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

// Error codes for build planning, execution and artifact deployment.
const (
	ErrCodeMissingKasFile = "DAEDALUS_MISSING_KAS_FILE"
	ErrCodeNoKasFile      = "DAEDALUS_NO_KAS_FILE"
	ErrCodeBuild          = "DAEDALUS_BUILD_FAILED"
	ErrCodeArtifacts      = "DAEDALUS_ARTIFACTS_ERROR"
)
