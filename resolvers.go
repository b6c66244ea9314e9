// resolvers.go: Reusable resolve functions for settings
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

var (
	truthy = map[string]bool{"1": true, "y": true, "yes": true, "t": true, "true": true, "on": true}
	falsy  = map[string]bool{"0": true, "n": true, "no": true, "f": true, "false": true, "off": true}
)

// ExpandTemplate replaces every {name} in s with the resolved value of the
// named setting. Unknown or not yet resolved names are an error.
func ExpandTemplate(cfg *ResolvedConfig, s string) (string, error) {
	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		if firstErr != nil {
			return m
		}
		v, err := cfg.Value(m[1 : len(m)-1])
		if err != nil {
			firstErr = err
			return m
		}
		if l, ok := v.([]string); ok {
			return strings.Join(l, ",")
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Template expands {name} placeholders in string values and in every
// element of list values. Other values pass through.
func Template(cfg *ResolvedConfig, raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return ExpandTemplate(cfg, v)
	case []string, []any:
		list := toStrings(v)
		for i, e := range list {
			expanded, err := ExpandTemplate(cfg, e)
			if err != nil {
				return nil, err
			}
			list[i] = expanded
		}
		return list, nil
	default:
		return raw, nil
	}
}

// Bool accepts a bool or one of the tokens 1/y/yes/t/true/on and
// 0/n/no/f/false/off, case-insensitively.
func Bool(_ *ResolvedConfig, raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	case int:
		return v != 0, nil
	case string:
		token := strings.ToLower(strings.TrimSpace(v))
		if truthy[token] {
			return true, nil
		}
		if falsy[token] {
			return false, nil
		}
		return nil, errors.New(ErrCodeValidation, "invalid boolean value: "+strconv.Quote(v))
	}
	return nil, errors.New(ErrCodeValidation, fmt.Sprintf("invalid boolean value: %v", raw))
}

// Int accepts integers and their string form.
func Int(_ *ResolvedConfig, raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return nil, errors.New(ErrCodeValidation, fmt.Sprintf("not an integer: %v", v))
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeValidation, "not an integer: "+strconv.Quote(v))
		}
		return n, nil
	}
	return nil, errors.New(ErrCodeValidation, fmt.Sprintf("not an integer: %v", raw))
}

// PositiveInt is Int restricted to values greater than zero.
func PositiveInt(cfg *ResolvedConfig, raw any) (any, error) {
	v, err := Int(cfg, raw)
	if err != nil {
		return nil, err
	}
	if v.(int) <= 0 {
		return nil, errors.New(ErrCodeValidation, fmt.Sprintf("must be a positive integer: %d", v.(int)))
	}
	return v, nil
}

// Path expands templates and returns an absolute, symlink-free path. Paths
// that do not exist yet are canonicalized through their nearest existing
// ancestor.
func Path(cfg *ResolvedConfig, raw any) (any, error) {
	v, err := Template(cfg, raw)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.New(ErrCodeValidation, fmt.Sprintf("path must be a string, got %T", v))
	}
	if s == "" {
		return nil, errors.New(ErrCodeValidation, "path cannot be empty")
	}
	return CanonicalPath(s)
}

// OptionalPath is Path that maps empty and nil values to "".
func OptionalPath(cfg *ResolvedConfig, raw any) (any, error) {
	if raw == nil {
		return "", nil
	}
	if s, ok := raw.(string); ok && s == "" {
		return "", nil
	}
	return Path(cfg, raw)
}

// CanonicalPath makes p absolute and resolves symlinks in its longest
// existing prefix.
func CanonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Wrap(err, ErrCodeValidation, "invalid path: "+p)
	}
	var rest []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Join(parts...), nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrap(err, ErrCodeIO, "cannot resolve path: "+p)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// SingleValue requires a list holding exactly one non-empty element and
// returns that element.
func SingleValue(_ *ResolvedConfig, raw any) (any, error) {
	var list []string
	if raw != nil {
		list = toStrings(raw)
	}
	if len(list) != 1 || list[0] == "" {
		return nil, errors.New(ErrCodeValidation, fmt.Sprintf("expected exactly one value, got %q", list))
	}
	return list[0], nil
}

// NonEmpty rejects nil, "" and empty lists.
func NonEmpty(_ *ResolvedConfig, raw any) (any, error) {
	if raw == nil {
		return nil, errors.New(ErrCodeValidation, "value is required")
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, errors.New(ErrCodeValidation, "value is required")
		}
	case []string, []any:
		if len(toStrings(v)) == 0 {
			return nil, errors.New(ErrCodeValidation, "value is required")
		}
	}
	return raw, nil
}

// Chain runs fns in order, feeding each the output of the previous one.
func Chain(fns ...ResolveFunc) ResolveFunc {
	return func(cfg *ResolvedConfig, raw any) (any, error) {
		v := raw
		for _, fn := range fns {
			var err error
			if v, err = fn(cfg, v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}
