// config.go: Check configuration file
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// DefaultConfigFile is the check config location relative to the project
// root.
const DefaultConfigFile = "tools/qa-checks/qa-checks_config.yml"

// FileConfig is a parsed check configuration file:
//
//	defaults:
//	  exclude_patterns: [GITIGNORE_CONTENTS]
//	modules:
//	  header:
//	    paths: [ROOT]
//	default_exclude: [layer]
type FileConfig struct {
	Path           string                    `yaml:"-"`
	Defaults       map[string]any            `yaml:"defaults"`
	Modules        map[string]map[string]any `yaml:"modules"`
	DefaultExclude []string                  `yaml:"default_exclude"`
}

// LoadFileConfig reads and parses path. A missing file is an error.
func LoadFileConfig(path string) (*FileConfig, error) {
	// #nosec G304 -- path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, ErrCodeCheckConfig, "config file '"+path+"' was not found").
				WithContext("path", path)
		}
		return nil, errors.Wrap(err, ErrCodeCheckConfig, "cannot read config file '"+path+"'").
			WithContext("path", path)
	}
	return ParseFileConfig(path, data)
}

// ParseFileConfig parses data read from path.
func ParseFileConfig(path string, data []byte) (*FileConfig, error) {
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, ErrCodeCheckConfig, "invalid config file '"+path+"'").
			WithContext("path", path)
	}
	cfg.Path = path
	return cfg, nil
}

// Lookup returns the value of param for check: modules.<check>.<param>
// first, then defaults.<param>. A value of the wrong shape for list, or a
// list holding empty elements, is logged and discarded. The bool result is
// false when nothing usable was found.
func (c *FileConfig) Lookup(logger *slog.Logger, check, param string, list bool) (any, bool) {
	if c == nil {
		return nil, false
	}
	raw, found := c.Modules[check][param]
	if !found {
		raw, found = c.Defaults[param]
	}
	if !found || raw == nil {
		return nil, false
	}

	items, isList := raw.([]any)
	_, isMap := raw.(map[string]any)
	if isMap || isList != list {
		logger.Error("config value type does not match the type expected by the check, discarding it",
			"check", check, "param", param, "file", c.Path)
		return nil, false
	}
	if !list {
		return fmt.Sprint(raw), true
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			logger.Error("config list has empty elements, discarding it",
				"check", check, "param", param, "file", c.Path)
			return nil, false
		}
		out = append(out, fmt.Sprint(item))
	}
	return out, true
}
