// registry.go: Ordered registry of settings
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	goerrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Registry holds settings in declaration order. The order matters: Resolve
// walks it front to back and a setting may only depend on earlier ones.
//
// A Registry is populated once at start-up and is read-only afterwards, so
// it may be shared freely between ResolvedConfig instances.
type Registry struct {
	settings []Setting
	index    map[string]int
	logger   *slog.Logger

	helpOnce sync.Once
	help     map[string]string
}

// NewRegistry builds a registry from settings. It fails on the first empty
// or duplicated name.
func NewRegistry(logger *slog.Logger, settings ...Setting) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		index:  make(map[string]int, len(settings)),
		logger: logger,
	}
	for _, s := range settings {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for
// package-level registries declared in code.
func MustRegistry(logger *slog.Logger, settings ...Setting) *Registry {
	r, err := NewRegistry(logger, settings...)
	if err != nil {
		panic(err)
	}
	return r
}

// Add appends a setting.
func (r *Registry) Add(s Setting) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New(ErrCodeInvalidSetting, "setting name cannot be empty")
	}
	if _, exists := r.index[s.Name]; exists {
		return errors.New(ErrCodeDuplicateSetting, "duplicate setting: "+s.Name).
			WithContext("setting", s.Name)
	}
	r.index[s.Name] = len(r.settings)
	r.settings = append(r.settings, s)
	return nil
}

// Settings returns the settings in declaration order.
func (r *Registry) Settings() []Setting {
	out := make([]Setting, len(r.settings))
	copy(out, r.settings)
	return out
}

// Lookup returns the setting called name.
func (r *Registry) Lookup(name string) (Setting, bool) {
	i, ok := r.index[name]
	if !ok {
		return Setting{}, false
	}
	return r.settings[i], true
}

// Len returns the number of registered settings.
func (r *Registry) Len() int { return len(r.settings) }

// Logger returns the logger used to report override violations.
func (r *Registry) Logger() *slog.Logger { return r.logger }

// Positional returns the first positional setting, if any.
func (r *Registry) Positional() (Setting, bool) {
	for _, s := range r.settings {
		if s.Positional {
			return s, true
		}
	}
	return Setting{}, false
}

// Help returns the help text of name with {other} placeholders replaced by
// the static defaults of the referenced settings. Placeholders that do not
// name a setting are left untouched.
func (r *Registry) Help(name string) string {
	r.helpOnce.Do(r.buildHelp)
	return r.help[name]
}

func (r *Registry) buildHelp() {
	r.help = make(map[string]string, len(r.settings))
	for _, s := range r.settings {
		r.help[s.Name] = placeholderRe.ReplaceAllStringFunc(s.Help, func(m string) string {
			ref, ok := r.Lookup(m[1 : len(m)-1])
			if !ok {
				return m
			}
			return formatDefault(ref.Default)
		})
	}
}

func formatDefault(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(d, ",")
	default:
		return fmt.Sprint(d)
	}
}

// CheckOverrides validates the keys of values without applying them. All
// violations are reported in a single joined error.
func (r *Registry) CheckOverrides(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		s, ok := r.Lookup(k)
		switch {
		case !ok:
			errs = append(errs, errors.New(ErrCodeUnknownSetting, "unknown setting: "+k).
				WithContext("setting", k))
		case s.Internal:
			errs = append(errs, errors.New(ErrCodeInternalSetting, "internal setting cannot be overridden: "+k).
				WithContext("setting", k))
		}
	}
	return goerrors.Join(errs...)
}

// ValidateOverrides is the boolean form of CheckOverrides: every violation
// is logged and the result says whether values may be applied.
func (r *Registry) ValidateOverrides(values map[string]any) bool {
	err := r.CheckOverrides(values)
	if err == nil {
		return true
	}
	for _, e := range splitJoined(err) {
		r.logger.Error("invalid override", "error", e)
	}
	return false
}

// FilterKnown returns the subset of values whose keys name non-internal
// settings.
func (r *Registry) FilterKnown(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if s, ok := r.Lookup(k); ok && !s.Internal {
			out[k] = v
		}
	}
	return out
}

// Defaults returns the raw default of every setting.
func (r *Registry) Defaults() map[string]any {
	out := make(map[string]any, len(r.settings))
	for _, s := range r.settings {
		out[s.Name] = copyValue(s.Default)
	}
	return out
}

// NewConfig returns an unresolved config holding the registry defaults.
func (r *Registry) NewConfig() *ResolvedConfig {
	return &ResolvedConfig{
		registry: r,
		raw:      r.Defaults(),
	}
}

// FlagSpec describes the command line flag generated for a setting.
type FlagSpec struct {
	Name       string
	Usage      string
	List       bool
	Positional bool
	Bool       bool
}

// FlagSpecs returns one descriptor per non-internal setting, in declaration
// order. Settings with a bool default are marked Bool.
func (r *Registry) FlagSpecs() []FlagSpec {
	specs := make([]FlagSpec, 0, len(r.settings))
	for _, s := range r.settings {
		if s.Internal {
			continue
		}
		_, isBool := s.Default.(bool)
		specs = append(specs, FlagSpec{
			Name:       s.Name,
			Usage:      r.Help(s.Name),
			List:       s.List,
			Positional: s.Positional,
			Bool:       isBool,
		})
	}
	return specs
}

func splitJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
