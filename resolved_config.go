// resolved_config.go: Two-phase configuration (override, then resolve)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"fmt"
	"strconv"

	"github.com/agilira/go-errors"
)

// ResolvedConfig carries one raw value per setting of its Registry and,
// once Resolve succeeded, the resolved view of those values.
//
// The lifecycle is strict: any number of Override calls, then exactly one
// Resolve. Overriding a resolved config drops its resolved view. A
// ResolvedConfig is not safe for concurrent mutation; resolved configs may
// be read concurrently.
type ResolvedConfig struct {
	registry *Registry
	raw      map[string]any

	values    map[string]any
	resolved  bool
	resolving bool
	done      map[string]bool
}

// Registry returns the registry the config was created from.
func (c *ResolvedConfig) Registry() *Registry { return c.registry }

// Resolved reports whether Resolve completed successfully since the last
// override.
func (c *ResolvedConfig) Resolved() bool { return c.resolved }

// Raw returns the raw (unresolved) value of name.
func (c *ResolvedConfig) Raw(name string) (any, bool) {
	v, ok := c.raw[name]
	return v, ok
}

// Override validates every key of values and, only if all of them are
// acceptable, assigns them. The config becomes unresolved.
func (c *ResolvedConfig) Override(values map[string]any) error {
	if err := c.registry.CheckOverrides(values); err != nil {
		return err
	}
	for k, v := range values {
		c.raw[k] = copyValue(v)
	}
	c.resolved = false
	c.values = nil
	return nil
}

// Resolve runs every resolve function in declaration order. On failure the
// config stays unresolved, keeps no partial values and the error names the
// failing setting.
func (c *ResolvedConfig) Resolve() error {
	if c.resolved {
		return errors.New(ErrCodeAlreadyResolved, "config already resolved")
	}
	c.values = make(map[string]any, len(c.raw))
	c.done = make(map[string]bool, len(c.raw))
	c.resolving = true
	defer func() {
		c.resolving = false
		c.done = nil
	}()

	for _, s := range c.registry.settings {
		v, err := s.resolve(c, c.raw[s.Name])
		if err != nil {
			c.values = nil
			code := ErrorCode(err)
			if code == "" {
				code = ErrCodeResolution
			}
			return errors.Wrap(err, errors.ErrorCode(code), "failed to resolve setting '"+s.Name+"': "+err.Error()).
				WithContext("setting", s.Name)
		}
		c.values[s.Name] = v
		c.done[s.Name] = true
	}
	c.resolved = true
	return nil
}

// Value returns the resolved value of name. While Resolve runs, only
// settings declared before the one being resolved are visible; anything
// else is a missing-reference error.
func (c *ResolvedConfig) Value(name string) (any, error) {
	if c.resolving {
		if !c.done[name] {
			return nil, errors.New(ErrCodeMissingReference, "setting '"+name+"' is not resolved yet").
				WithContext("setting", name)
		}
		return c.values[name], nil
	}
	if !c.resolved {
		return nil, errors.New(ErrCodeNotResolved, "config is not resolved")
	}
	v, ok := c.values[name]
	if !ok {
		return nil, errors.New(ErrCodeUnknownSetting, "unknown setting: "+name).
			WithContext("setting", name)
	}
	return v, nil
}

// String returns the resolved value of name as a string. Nil becomes "".
func (c *ResolvedConfig) String(name string) string {
	v, err := c.Value(name)
	if err != nil || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the resolved value of name as a bool.
func (c *ResolvedConfig) Bool(name string) bool {
	v, _ := c.Value(name)
	b, _ := v.(bool)
	return b
}

// Int returns the resolved value of name as an int.
func (c *ResolvedConfig) Int(name string) int {
	v, _ := c.Value(name)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

// Strings returns the resolved value of name as a string slice.
func (c *ResolvedConfig) Strings(name string) []string {
	v, _ := c.Value(name)
	return toStrings(v)
}

// Values returns a copy of all resolved values.
func (c *ResolvedConfig) Values() map[string]any {
	if !c.resolved {
		return nil
	}
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = copyValue(v)
	}
	return out
}

// Names returns the setting names in declaration order.
func (c *ResolvedConfig) Names() []string {
	names := make([]string, 0, len(c.registry.settings))
	for _, s := range c.registry.settings {
		names = append(names, s.Name)
	}
	return names
}

// Clone returns an unresolved copy holding the same raw values.
func (c *ResolvedConfig) Clone() *ResolvedConfig {
	raw := make(map[string]any, len(c.raw))
	for k, v := range c.raw {
		raw[k] = copyValue(v)
	}
	return &ResolvedConfig{registry: c.registry, raw: raw}
}
