// settings.go: Settings of the kas container build runner
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/agilira/daedalus"
)

// Setting names read by the runner.
const (
	SettingProjectRoot           = "project_root"
	SettingOutDir                = "out_dir"
	SettingKasDir                = "kas_dir"
	SettingSstateDir             = "sstate_dir"
	SettingDlDir                 = "dl_dir"
	SettingArtifactsDir          = "artifacts_dir"
	SettingSstateMirror          = "sstate_mirror"
	SettingDownloadsMirror       = "downloads_mirror"
	SettingDeployArtifacts       = "deploy_artifacts"
	SettingNetworkMode           = "network_mode"
	SettingContainerEngine       = "container_engine"
	SettingContainerImage        = "container_image"
	SettingContainerImageVersion = "container_image_version"
	SettingEngineArguments       = "engine_arguments"
	SettingJobs                  = "j"
	SettingKasArguments          = "kas_arguments"
	SettingLogFile               = "log_file"
	SettingKasFile               = "kasfile"
	SettingBuildName             = "build_name"
	SettingBuildDir              = "build_dir"
)

// DefaultRunnerConfig is the config file used by "build all", relative to
// the project root.
const DefaultRunnerConfig = "meta-ewaol-config/kas-runner/ci.yml"

// Settings returns the runner settings in resolution order.
func Settings() []daedalus.Setting {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return []daedalus.Setting{
		{Name: SettingProjectRoot, Default: cwd, Resolve: daedalus.Path,
			Help: "Project root path (default: {project_root})."},
		{Name: SettingOutDir, Default: "{project_root}/build", Resolve: daedalus.Path,
			Help: "Path to build directory (default: {out_dir})."},
		{Name: SettingKasDir, Default: "{project_root}/meta-ewaol-config/kas", Resolve: daedalus.Path,
			Help: "Directory holding the kas config files (default: {kas_dir})."},
		{Name: SettingSstateDir, Default: "{out_dir}/yocto-cache/sstate-cache", Resolve: daedalus.Path,
			Help: "Path to local sstate cache for this build (default: {sstate_dir})."},
		{Name: SettingDlDir, Default: "{out_dir}/yocto-cache/downloads", Resolve: daedalus.Path,
			Help: "Path to local downloads cache for this build (default: {dl_dir})."},
		{Name: SettingArtifactsDir, Default: "{out_dir}/artifacts", Resolve: daedalus.Path,
			Help: "Directory storing build logs, config and images when deploy_artifacts is set (default: {artifacts_dir})."},
		{Name: SettingSstateMirror, Resolve: daedalus.OptionalPath,
			Help: "Path to read-only sstate mirror."},
		{Name: SettingDownloadsMirror, Resolve: daedalus.OptionalPath,
			Help: "Path to read-only downloads mirror."},
		{Name: SettingDeployArtifacts, Default: false, Resolve: daedalus.Bool,
			Help: "Generate artifacts for CI and store them in the artifacts dir (default: {deploy_artifacts})."},
		{Name: SettingNetworkMode, Default: "bridge", Resolve: daedalus.Chain(daedalus.Template, daedalus.NonEmpty),
			Help: "Network mode of the container (default: {network_mode})."},
		{Name: SettingContainerEngine, Default: "docker", Resolve: daedalus.NonEmpty,
			Help: "Container engine (default: {container_engine})."},
		{Name: SettingContainerImage, Default: "ghcr.io/siemens/kas/kas", Resolve: daedalus.NonEmpty,
			Help: "Container image (default: {container_image})."},
		{Name: SettingContainerImageVersion, Default: "2.5", Resolve: daedalus.NonEmpty,
			Help: "Container image version (default: {container_image_version}). Versions 2.4 and lower lack KAS_BUILD_DIR support."},
		{Name: SettingEngineArguments, Resolve: daedalus.Template,
			Help: "Extra container engine run arguments, e.g. '--volume /host/dir:/container/dir --env VAR=value'."},
		{Name: SettingJobs, Default: strconv.Itoa(runtime.NumCPU()), Resolve: daedalus.PositiveInt,
			Help: "Number of bitbake threads, exported as BB_NUMBER_THREADS (default: {j})."},
		{Name: SettingKasArguments, Default: "build", Resolve: daedalus.NonEmpty,
			Help: "Arguments passed to kas inside the container (default: {kas_arguments})."},
		{Name: SettingLogFile, Resolve: daedalus.OptionalPath,
			Help: "Also write output to this file."},
		{Name: SettingKasFile, Positional: true, List: true, Resolve: daedalus.SingleValue,
			Help: "kas config files relative to kas_dir; one build per argument, each a colon separated list of files to merge."},
		{Name: SettingBuildName, Internal: true, Resolve: resolveBuildName},
		{Name: SettingBuildDir, Internal: true, Resolve: func(cfg *daedalus.ResolvedConfig, _ any) (any, error) {
			return filepath.Join(cfg.String(SettingOutDir), cfg.String(SettingBuildName)), nil
		}},
	}
}

// NewRegistry returns a registry holding Settings.
func NewRegistry(logger *slog.Logger) (*daedalus.Registry, error) {
	return daedalus.NewRegistry(logger, Settings()...)
}

// resolveBuildName joins the kas file names without directory or
// extension with "_".
func resolveBuildName(cfg *daedalus.ResolvedConfig, _ any) (any, error) {
	return BuildName(cfg.String(SettingKasFile)), nil
}

// BuildName derives the build name of a colon separated kas file list.
func BuildName(kasFiles string) string {
	parts := SplitKasFiles(kasFiles)
	for i, p := range parts {
		base := filepath.Base(p)
		parts[i] = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return strings.Join(parts, "_")
}

// SplitKasFiles splits a colon separated kas file list.
func SplitKasFiles(kasFiles string) []string {
	if kasFiles == "" {
		return nil
	}
	return strings.Split(kasFiles, ":")
}
