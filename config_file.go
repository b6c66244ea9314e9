// config_file.go: Versioned runner config files with named entries
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	goerrors "errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agilira/go-errors"
)

// MinConfigVersion is the oldest config file layout still understood.
const MinConfigVersion = 1

// BuildTargetSuffix marks the entries selected by a "build all" run.
const BuildTargetSuffix = "-build"

// ConfigRef points at a config file and, optionally, one of its entries.
type ConfigRef struct {
	Path  string
	Entry string
}

// ParseConfigRef splits "path[:entry]". Only the first colon separates the
// entry name.
func ParseConfigRef(ref string) (ConfigRef, error) {
	if strings.TrimSpace(ref) == "" {
		return ConfigRef{}, errors.New(ErrCodeInvalidConfig, "empty config reference")
	}
	path, entry, _ := strings.Cut(ref, ":")
	if path == "" {
		return ConfigRef{}, errors.New(ErrCodeInvalidConfig, "config reference has no file: "+ref)
	}
	return ConfigRef{Path: path, Entry: entry}, nil
}

// String returns the reference in "path[:entry]" form.
func (r ConfigRef) String() string {
	if r.Entry == "" {
		return r.Path
	}
	return r.Path + ":" + r.Entry
}

// ConfigFile is a loaded and version-checked runner config file.
type ConfigFile struct {
	Path    string
	Format  ConfigFormat
	Version int
	entries []Entry
}

// LoadConfigFile reads path and checks its header version.
func LoadConfigFile(path string) (*ConfigFile, error) {
	// #nosec G304 -- path is chosen by the operator on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, ErrCodeConfigNotFound, "config file not found: "+path).
				WithContext("path", path)
		}
		return nil, errors.Wrap(err, ErrCodeIO, "cannot read config file: "+path).
			WithContext("path", path)
	}
	return ParseConfigFile(path, data)
}

// ParseConfigFile is LoadConfigFile for data already in memory. path is used
// for format detection and messages only.
func ParseConfigFile(path string, data []byte) (*ConfigFile, error) {
	format := DetectFormat(path)
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid config file: "+path).
			WithContext("path", path)
	}

	version := headerVersion(doc.Header)
	if version < MinConfigVersion {
		return nil, errors.New(ErrCodeIncompatibleVersion,
			fmt.Sprintf("incompatible version of config file %s: version %d, need at least %d", path, version, MinConfigVersion)).
			WithContext("path", path)
	}
	if len(doc.Entries) == 0 {
		return nil, errors.New(ErrCodeInvalidConfig, "config file has no entries: "+path).
			WithContext("path", path)
	}
	return &ConfigFile{Path: path, Format: format, Version: version, entries: doc.Entries}, nil
}

func headerVersion(header map[string]any) int {
	switch v := header["version"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Names returns the entry names in file order.
func (f *ConfigFile) Names() []string {
	names := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		names = append(names, e.Name)
	}
	return names
}

// BuildTargets returns the entries whose name ends in BuildTargetSuffix.
func (f *ConfigFile) BuildTargets() []string {
	var out []string
	for _, e := range f.entries {
		if strings.HasSuffix(e.Name, BuildTargetSuffix) {
			out = append(out, e.Name)
		}
	}
	return out
}

// Entry returns a copy of the values of the named entry, or of the first
// entry when name is empty.
func (f *ConfigFile) Entry(name string) (Entry, error) {
	if name == "" {
		e := f.entries[0]
		return Entry{Name: e.Name, Values: copyMap(e.Values)}, nil
	}
	for _, e := range f.entries {
		if e.Name == name {
			return Entry{Name: e.Name, Values: copyMap(e.Values)}, nil
		}
	}
	return Entry{}, errors.New(ErrCodeEntryNotFound,
		fmt.Sprintf("config entry '%s' not found in %s (available: %s)", name, f.Path, strings.Join(f.Names(), ", "))).
		WithContext("entry", name)
}

// CheckEntry validates entry values against the registry: keys must name
// non-internal settings and list settings take lists, scalar settings take
// scalars.
func (r *Registry) CheckEntry(values map[string]any) error {
	var errs []error
	if err := r.CheckOverrides(values); err != nil {
		errs = append(errs, splitJoined(err)...)
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, ok := r.Lookup(k)
		v := values[k]
		if !ok || s.Internal || v == nil {
			continue
		}
		switch {
		case s.List && !isList(v):
			errs = append(errs, errors.New(ErrCodeTypeMismatch,
				fmt.Sprintf("setting '%s' expects a list, got %T", k, v)).WithContext("setting", k))
		case !s.List && isList(v):
			errs = append(errs, errors.New(ErrCodeTypeMismatch,
				fmt.Sprintf("setting '%s' expects a single value, got a list", k)).WithContext("setting", k))
		case !s.List && !isScalar(v):
			errs = append(errs, errors.New(ErrCodeTypeMismatch,
				fmt.Sprintf("setting '%s' expects a single value, got %T", k, v)).WithContext("setting", k))
		}
	}
	return goerrors.Join(errs...)
}
