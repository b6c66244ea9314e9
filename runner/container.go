// container.go: Container engine command line for a kas build
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agilira/daedalus"
	"github.com/agilira/go-errors"
	"github.com/kballard/go-shellquote"
)

// Mount points inside the build container.
const (
	WorkDir          = "/work"
	KasBuildDir      = "/kas_build_dir"
	SstateDir        = "/sstate_dir"
	DlDir            = "/dl_dir"
	SstateMirrorDir  = "/sstate_mirrors"
	SourceMirrorDir  = "/source_mirror_url"
	ContainerPrefix  = "kas_build."
	minImageWithDirs = "2.5"
)

// Container accumulates the arguments of a container engine "run".
type Container struct {
	Engine  string
	Name    string
	Image   string
	Version string
	args    []string
}

// NewContainer starts a "run --rm --name <name>" command line.
func NewContainer(engine, image, version, name string) *Container {
	return &Container{
		Engine:  engine,
		Name:    name,
		Image:   image,
		Version: version,
		args:    []string{"--rm", "--name", name},
	}
}

// AddArg appends raw engine arguments.
func (c *Container) AddArg(args ...string) {
	c.args = append(c.args, args...)
}

// AddEnv passes KEY=value into the container.
func (c *Container) AddEnv(key string, value any) {
	c.args = append(c.args, "--env", fmt.Sprintf("%s=%v", key, value))
}

// AddVolume mounts hostPath at containerPath. A non-empty envVar is set to
// containerPath inside the container.
func (c *Container) AddVolume(hostPath, containerPath, perms, envVar string) {
	if perms == "" {
		perms = "rw"
	}
	if abs, err := filepath.Abs(hostPath); err == nil {
		hostPath = abs
	}
	c.args = append(c.args, "--volume", hostPath+":"+containerPath+":"+perms)
	if envVar != "" {
		c.AddEnv(envVar, containerPath)
	}
}

// Args returns the engine arguments added so far.
func (c *Container) Args() []string {
	return append([]string(nil), c.args...)
}

// Argv returns the full command line running kasArguments on kasConfig.
func (c *Container) Argv(kasArguments []string, kasConfig string) []string {
	argv := make([]string, 0, len(c.args)+len(kasArguments)+4)
	argv = append(argv, c.Engine, "run")
	argv = append(argv, c.args...)
	argv = append(argv, c.Image+":"+c.Version)
	argv = append(argv, kasArguments...)
	return append(argv, kasConfig)
}

// StopArgv returns the command line stopping the container.
func (c *Container) StopArgv() []string {
	return []string{c.Engine, "stop", c.Name}
}

// KasConfig rewrites a colon separated list of kas files, relative to
// kasDir, into paths under WorkDir.
func KasConfig(kasFiles, projectRoot, kasDir string) (string, error) {
	parts := SplitKasFiles(kasFiles)
	for i, kfile := range parts {
		rel, err := filepath.Rel(projectRoot, filepath.Join(kasDir, kfile))
		if err != nil {
			return "", errors.Wrap(err, daedalus.ErrCodeValidation, "kas file is not under the project root: "+kfile)
		}
		parts[i] = filepath.ToSlash(filepath.Join(WorkDir, rel))
	}
	return strings.Join(parts, ":"), nil
}

// BuildContainer assembles the container for one resolved build config.
func BuildContainer(cfg *daedalus.ResolvedConfig, name string) (*Container, error) {
	c := NewContainer(
		cfg.String(SettingContainerEngine),
		cfg.String(SettingContainerImage),
		cfg.String(SettingContainerImageVersion),
		name,
	)

	c.AddEnv("USER_ID", os.Getuid())
	c.AddEnv("GROUP_ID", os.Getgid())

	c.AddVolume(cfg.String(SettingProjectRoot), WorkDir, "", "")
	c.AddArg("--workdir=" + WorkDir)
	c.AddEnv("KAS_WORK_DIR", WorkDir)

	c.AddVolume(cfg.String(SettingBuildDir), KasBuildDir, "", "KAS_BUILD_DIR")
	c.AddVolume(cfg.String(SettingSstateDir), SstateDir, "", "SSTATE_DIR")
	c.AddVolume(cfg.String(SettingDlDir), DlDir, "", "DL_DIR")

	c.AddArg("--network=" + cfg.String(SettingNetworkMode))

	if mirror := cfg.String(SettingSstateMirror); mirror != "" {
		c.AddVolume(mirror, SstateMirrorDir, "ro", "")
		c.AddEnv("SSTATE_MIRRORS", "file://.* file://"+SstateMirrorDir+"/PATH;downloadfilename=PATH")
	}
	if mirror := cfg.String(SettingDownloadsMirror); mirror != "" {
		c.AddVolume(mirror, SourceMirrorDir, "ro", "")
		c.AddEnv("SOURCE_MIRROR_URL", "file://"+SourceMirrorDir)
		c.AddEnv("INHERIT", "own-mirrors")
		c.AddEnv("BB_GENERATE_MIRROR_TARBALLS", "1")
	}

	if extra := cfg.String(SettingEngineArguments); extra != "" {
		words, err := shellquote.Split(extra)
		if err != nil {
			return nil, errors.Wrap(err, daedalus.ErrCodeValidation, "invalid engine_arguments: "+extra)
		}
		c.AddArg(words...)
	}

	c.AddEnv("BB_NUMBER_THREADS", strconv.Itoa(cfg.Int(SettingJobs)))
	return c, nil
}

// BuildArgv returns the container and full command line for cfg.
func BuildArgv(cfg *daedalus.ResolvedConfig, name string) (*Container, []string, error) {
	c, err := BuildContainer(cfg, name)
	if err != nil {
		return nil, nil, err
	}
	kasArgs, err := shellquote.Split(cfg.String(SettingKasArguments))
	if err != nil {
		return nil, nil, errors.Wrap(err, daedalus.ErrCodeValidation, "invalid kas_arguments: "+cfg.String(SettingKasArguments))
	}
	kasConfig, err := KasConfig(cfg.String(SettingKasFile), cfg.String(SettingProjectRoot), cfg.String(SettingKasDir))
	if err != nil {
		return nil, nil, err
	}
	return c, c.Argv(kasArgs, kasConfig), nil
}
