// resolve.go: Merging check parameters from flags, config file and defaults
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/agilira/daedalus"
)

// Resolver computes the parameters of each check for one run.
type Resolver struct {
	// Config is the check config file, or nil when running without one.
	Config *FileConfig

	// CLI maps flag names ("{check}_{setting}") to the raw values given on
	// the command line. Unset flags are absent.
	CLI map[string]string

	// Keywords expands ROOT and GITIGNORE_CONTENTS and provides the
	// project root.
	Keywords *daedalus.KeywordCache

	Logger *slog.Logger
}

// Resolve returns the parameters of plugin p. The bool result is false when
// a required setting has no value; the check is then dropped with a
// warning.
func (r *Resolver) Resolve(p Plugin) (Params, bool, error) {
	logger := r.logger()
	name := p.Name()
	params := Params{ProjectRootParam: r.Keywords.Root()}

	var missing []string
	for _, s := range p.Settings() {
		value, ok := r.merge(name, s)
		if ok {
			value, ok = r.expand(name, s, value)
		}
		if !ok {
			if s.Required {
				missing = append(missing, s.Name)
			}
			continue
		}
		if s.Pattern {
			set, err := CompilePatterns(r.Keywords.Root(), toList(value), logger)
			if err != nil {
				return nil, false, err
			}
			params[s.Name] = set
			continue
		}
		params[s.Name] = value
	}

	if len(missing) > 0 {
		logger.Warn(fmt.Sprintf("missing parameters for %s check: %v, skipping this check", name, missing),
			"check", name)
		return nil, false, nil
	}
	return params, true, nil
}

// merge applies the precedence: flag, then config file, then default.
// List values put the flag value in front of the lower layers.
func (r *Resolver) merge(check string, s CheckSetting) (any, bool) {
	cli, hasCLI := r.CLI[FlagName(check, s.Name)]
	var cliList []string
	if hasCLI && s.List {
		cliList = splitFlagList(cli)
	}

	lower, hasLower := r.Config.Lookup(r.logger(), check, s.Name, s.List)
	if !hasLower && s.Default != nil {
		lower, hasLower = s.Default, true
	}

	switch {
	case s.List && hasCLI && hasLower:
		return append(cliList, toList(lower)...), true
	case s.List && hasCLI:
		return cliList, true
	case hasCLI:
		return cli, true
	case hasLower && s.List:
		return toList(lower), true
	case hasLower:
		return fmt.Sprint(lower), true
	}
	return nil, false
}

// expand substitutes keywords. List elements naming a list keyword are
// replaced by its contents.
func (r *Resolver) expand(check string, s CheckSetting, value any) (any, bool) {
	if !s.List {
		str, _ := value.(string)
		if !daedalus.IsKeyword(str) {
			return value, true
		}
		kv, _ := r.Keywords.Lookup(str)
		if _, isList := kv.([]string); isList {
			r.logger().Warn("list keyword used for a non-list parameter, discarding the value",
				"param", FlagName(check, s.Name), "keyword", str)
			return nil, false
		}
		return kv, true
	}

	items := toList(value)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !daedalus.IsKeyword(item) {
			out = append(out, item)
			continue
		}
		kv, _ := r.Keywords.Lookup(item)
		switch v := kv.(type) {
		case []string:
			out = append(out, v...)
		case string:
			out = append(out, v)
		}
	}
	return out, true
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// splitFlagList splits a comma separated flag value, trimming elements and
// dropping empty ones.
func splitFlagList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toList(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{t}
	case nil:
		return nil
	}
	return []string{fmt.Sprint(v)}
}
