// registry.go: Available check plugins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"slices"
	"strings"

	"github.com/agilira/daedalus"
	"github.com/agilira/go-errors"
)

// Selection keywords accepted by --check.
const (
	SelectAll     = "all"
	SelectDefault = "default"
)

// Registry holds the available plugins in registration order.
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
}

// NewRegistry registers plugins. Names must be unique, non-empty and must
// not collide with the selection keywords.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{byName: make(map[string]Plugin)}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(plugins ...Plugin) *Registry {
	r, err := NewRegistry(plugins...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds p.
func (r *Registry) Register(p Plugin) error {
	name := p.Name()
	if name == "" || name == SelectAll || name == SelectDefault || strings.ContainsAny(name, ", ") {
		return errors.New(ErrCodeInvalidCheck, "invalid check name '"+name+"'").
			WithContext("check", name)
	}
	if _, dup := r.byName[name]; dup {
		return errors.New(ErrCodeDuplicateCheck, "check '"+name+"' registered twice").
			WithContext("check", name)
	}
	seen := make(map[string]bool)
	for _, s := range p.Settings() {
		if s.Name == "" || seen[s.Name] || s.Name == ProjectRootParam {
			return errors.New(ErrCodeInvalidCheck, "check '"+name+"' has an invalid or duplicate setting '"+s.Name+"'").
				WithContext("check", name).WithContext("setting", s.Name)
		}
		seen[s.Name] = true
	}
	r.plugins = append(r.plugins, p)
	r.byName[name] = p
	return nil
}

// Lookup returns the plugin called name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names returns the plugin names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// Plugins returns the plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	return slices.Clone(r.plugins)
}

// Select turns the requested names into plugins in registration order.
// An empty request means all. "default" means all except defaultExclude.
// Elements may be comma separated lists.
func (r *Registry) Select(requested, defaultExclude []string) ([]Plugin, error) {
	want := make(map[string]bool)
	var unknown []string
	selected := false
	for _, req := range requested {
		for _, name := range splitFlagList(req) {
			selected = true
			switch name {
			case SelectAll:
				for _, p := range r.plugins {
					want[p.Name()] = true
				}
			case SelectDefault:
				for _, p := range r.plugins {
					if !slices.Contains(defaultExclude, p.Name()) {
						want[p.Name()] = true
					}
				}
			default:
				if _, ok := r.byName[name]; !ok {
					unknown = append(unknown, name)
					continue
				}
				want[name] = true
			}
		}
	}
	if len(unknown) > 0 {
		return nil, errors.New(ErrCodeUnknownCheck,
			"unknown check(s) "+strings.Join(unknown, ", ")+"; available: "+strings.Join(r.Names(), ", ")).
			WithContext("checks", unknown)
	}
	if !selected {
		return r.Plugins(), nil
	}

	var out []Plugin
	for _, p := range r.plugins {
		if want[p.Name()] {
			out = append(out, p)
		}
	}
	return out, nil
}

// FlagSpecs returns one "{check}_{setting}" flag per plugin setting. Every
// flag takes a string; list flags take a comma separated list.
func (r *Registry) FlagSpecs() []daedalus.FlagSpec {
	var specs []daedalus.FlagSpec
	for _, p := range r.plugins {
		for _, s := range p.Settings() {
			specs = append(specs, daedalus.FlagSpec{
				Name:  FlagName(p.Name(), s.Name),
				Usage: s.Message,
				List:  s.List,
			})
		}
	}
	return specs
}
