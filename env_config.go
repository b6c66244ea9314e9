// env_config.go: Environment variable layer
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix is prepended to upper-cased setting names to form the
// environment variable read for each setting.
const DefaultEnvPrefix = "DAEDALUS_"

// EnvKey returns the environment variable consulted for setting name.
func EnvKey(prefix, name string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// EnvOverrides collects overrides for every non-internal setting from
// environ (in os.Environ form). List settings are split on commas. Empty
// variables are ignored.
func EnvOverrides(reg *Registry, prefix string, environ []string) map[string]any {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	out := make(map[string]any)
	for _, s := range reg.settings {
		if s.Internal {
			continue
		}
		v, ok := env[EnvKey(prefix, s.Name)]
		if !ok || v == "" {
			continue
		}
		if s.List {
			out[s.Name] = splitList(v)
		} else {
			out[s.Name] = v
		}
	}
	return out
}

// parseBool understands the tokens accepted by the Bool resolver plus
// enabled/disabled. Anything else is false.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y", "t", "on", "enabled":
		return true
	default:
		return false
	}
}

// GetEnvWithDefault returns environment variable value or default if not set
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDurationWithDefault returns environment variable as duration or default
func GetEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvIntWithDefault returns environment variable as int or default
func GetEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBoolWithDefault returns environment variable as bool or default
func GetEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value)
	}
	return defaultValue
}
