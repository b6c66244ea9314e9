// pipeline.go: Layered merge of defaults, config file, environment and CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	goerrors "errors"
	"log/slog"

	"github.com/agilira/go-errors"
)

// Sources holds the inputs of one pipeline run.
type Sources struct {
	// ConfigRef is "path[:entry]"; empty means no config file.
	ConfigRef string

	// CLI holds command line values keyed by setting name. Unknown and
	// internal keys are ignored, as are empty non-bool values.
	CLI map[string]any

	// Environ is consulted when the pipeline has an EnvPrefix, in
	// os.Environ form.
	Environ []string
}

// Pipeline merges the configuration layers in fixed order (registry
// defaults, config file entry, environment, command line) and resolves the
// result.
type Pipeline struct {
	Registry *Registry

	// FanOut names a list setting. When set, one config is produced per
	// element, with the setting overridden to that single element.
	FanOut string

	// EnvPrefix enables the environment layer.
	EnvPrefix string

	Logger *slog.Logger
}

// Result is the outcome of a pipeline run. Configs holds every config that
// resolved; Err joins the failures of the others.
type Result struct {
	Configs []*ResolvedConfig
	Entry   string
	Err     error
}

// Build runs the pipeline for the entry named by src.ConfigRef (or the first
// entry when the reference names none).
func (p *Pipeline) Build(src Sources) Result {
	var file *ConfigFile
	entry := ""
	if src.ConfigRef != "" {
		ref, err := ParseConfigRef(src.ConfigRef)
		if err != nil {
			return Result{Err: err}
		}
		if file, err = LoadConfigFile(ref.Path); err != nil {
			return Result{Err: err}
		}
		entry = ref.Entry
	}
	return p.build(src, file, entry)
}

// BuildEntries runs the pipeline once per named entry of the config file in
// src.ConfigRef (any entry part of the reference is ignored). Failures of
// one entry do not stop the others.
func (p *Pipeline) BuildEntries(src Sources, names []string) ([]Result, error) {
	ref, err := ParseConfigRef(src.ConfigRef)
	if err != nil {
		return nil, err
	}
	file, err := LoadConfigFile(ref.Path)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(names))
	for _, name := range names {
		results = append(results, p.build(src, file, name))
	}
	return results, nil
}

func (p *Pipeline) build(src Sources, file *ConfigFile, entryName string) Result {
	logger := p.Logger
	if logger == nil {
		logger = p.Registry.Logger()
	}

	base, entry, err := p.Layer(src, file, entryName)
	if err != nil {
		return Result{Entry: entry, Err: err}
	}

	candidates := []*ResolvedConfig{base}
	if p.FanOut != "" {
		candidates, err = p.fanOut(base)
		if err != nil {
			return Result{Entry: entry, Err: err}
		}
	}

	res := Result{Entry: entry}
	var errs []error
	for _, cfg := range candidates {
		if err := cfg.Resolve(); err != nil {
			logger.Error("configuration failed to resolve", "entry", entry, "error", err)
			errs = append(errs, err)
			continue
		}
		res.Configs = append(res.Configs, cfg)
	}
	if len(errs) > 0 {
		res.Err = goerrors.Join(errs...)
	}
	return res
}

// Layer applies every layer to a fresh config without resolving it. It
// returns the entry name actually used.
func (p *Pipeline) Layer(src Sources, file *ConfigFile, entryName string) (*ResolvedConfig, string, error) {
	cfg := p.Registry.NewConfig()

	if file != nil {
		entry, err := file.Entry(entryName)
		if err != nil {
			return nil, entryName, err
		}
		entryName = entry.Name
		if err := p.Registry.CheckEntry(entry.Values); err != nil {
			return nil, entryName, goerrors.Join(
				errors.New(ErrCodeValidation, "invalid config entry '"+entry.Name+"' in "+file.Path), err)
		}
		if err := cfg.Override(entry.Values); err != nil {
			return nil, entryName, err
		}
	}

	if p.EnvPrefix != "" {
		if err := cfg.Override(EnvOverrides(p.Registry, p.EnvPrefix, src.Environ)); err != nil {
			return nil, entryName, err
		}
	}

	cli := p.Registry.FilterKnown(src.CLI)
	for k, v := range cli {
		if isFalsy(v) {
			delete(cli, k)
		}
	}
	if err := cfg.Override(cli); err != nil {
		return nil, entryName, err
	}
	return cfg, entryName, nil
}

func (p *Pipeline) fanOut(base *ResolvedConfig) ([]*ResolvedConfig, error) {
	s, ok := p.Registry.Lookup(p.FanOut)
	if !ok || !s.List {
		return nil, errors.New(ErrCodeInvalidSetting, "fan-out setting must be a registered list: "+p.FanOut)
	}
	raw, _ := base.Raw(p.FanOut)
	values := toStrings(raw)
	if len(values) == 0 {
		// Nothing to fan out over; the resolve functions decide whether
		// that is acceptable.
		return []*ResolvedConfig{base}, nil
	}
	out := make([]*ResolvedConfig, 0, len(values))
	for _, v := range values {
		clone := base.Clone()
		if err := clone.Override(map[string]any{p.FanOut: []string{v}}); err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}
