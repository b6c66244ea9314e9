// config_writer.go: Serialization of resolved values and config templates
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/agilira/go-errors"
	timecache "github.com/agilira/go-timecache"
	"go.yaml.in/yaml/v3"
)

// WriteValues writes values in the given format. YAML output follows the
// order of keys; JSON and TOML output is sorted by key.
func WriteValues(w io.Writer, values map[string]any, keys []string, format ConfigFormat) error {
	data, err := serializeValues(values, keys, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, ErrCodeIO, "failed to write values")
	}
	return nil
}

// WriteResolved writes every resolved value of cfg in declaration order.
func WriteResolved(w io.Writer, cfg *ResolvedConfig, format ConfigFormat) error {
	if !cfg.Resolved() {
		return errors.New(ErrCodeNotResolved, "config is not resolved")
	}
	return WriteValues(w, cfg.Values(), cfg.Names(), format)
}

func serializeValues(values map[string]any, keys []string, format ConfigFormat) ([]byte, error) {
	switch format {
	case FormatYAML:
		return serializeYAML(values, keys)
	case FormatJSON:
		return serializeJSON(values)
	case FormatTOML:
		return serializeTOML(values)
	default:
		return nil, errors.New(ErrCodeUnsupportedFormat, "unsupported output format: "+format.String())
	}
}

func serializeYAML(values map[string]any, keys []string) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "YAML encode failed for '"+k+"'")
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "YAML marshal failed")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "YAML marshal failed")
	}
	return buf.Bytes(), nil
}

func serializeJSON(values map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "JSON marshal failed")
	}
	return append(data, '\n'), nil
}

// serializeTOML drops nil values, which TOML cannot represent.
func serializeTOML(values map[string]any) ([]byte, error) {
	clean := make(map[string]any, len(values))
	for k, v := range values {
		if v != nil {
			clean[k] = v
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(clean); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "TOML marshal failed")
	}
	return buf.Bytes(), nil
}

// WriteConfigTemplate writes a version 1 runner config file to path with a
// single entry holding the defaults of every overridable setting. Existing
// files are never replaced.
func WriteConfigTemplate(path string, reg *Registry, entry string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.New(ErrCodeInvalidConfig, "refusing to overwrite existing file: "+path).
			WithContext("path", path)
	}

	values := make(map[string]any)
	var keys []string
	for _, s := range reg.settings {
		if s.Internal || s.Default == nil {
			continue
		}
		values[s.Name] = copyValue(s.Default)
		keys = append(keys, s.Name)
	}

	format := DetectFormat(path)
	var data []byte
	var err error
	switch format {
	case FormatYAML:
		var body []byte
		if body, err = serializeYAML(values, keys); err == nil {
			var buf bytes.Buffer
			fmt.Fprintf(&buf, "header:\n  version: %d\nconfigs:\n  %s:\n", MinConfigVersion, entry)
			for _, line := range bytes.Split(bytes.TrimRight(body, "\n"), []byte("\n")) {
				buf.WriteString("    ")
				buf.Write(line)
				buf.WriteByte('\n')
			}
			data = buf.Bytes()
		}
	case FormatJSON:
		data, err = serializeJSON(map[string]any{
			"header":  map[string]any{"version": MinConfigVersion},
			"configs": map[string]any{entry: values},
		})
	case FormatTOML:
		data, err = serializeTOML(map[string]any{
			"header":  map[string]any{"version": MinConfigVersion},
			"configs": map[string]any{entry: values},
		})
	}
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite writes data to a temporary file next to path and renames it
// into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, ErrCodeIO, "failed to create directory "+dir)
	}
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", filepath.Base(path), timecache.CachedTimeNano()))
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return errors.Wrap(err, ErrCodeIO, "failed to write temp file")
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, ErrCodeIO, "failed to rename temp file")
	}
	return nil
}
