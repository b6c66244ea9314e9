// parsers.go: Config file format detection and parsing
//
// Runner config files are accepted as YAML, JSON (read through the YAML
// parser, JSON being a subset of it) and TOML. Entry order is significant:
// the first entry is the default one, so every parser reports entries in
// document order.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// ConfigFormat identifies a config file syntax.
type ConfigFormat int

const (
	FormatYAML ConfigFormat = iota
	FormatJSON
	FormatTOML
	FormatUnknown
)

// String returns the lowercase format name.
func (cf ConfigFormat) String() string {
	switch cf {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// ParseFormat maps a user supplied format name to a ConfigFormat.
func ParseFormat(name string) ConfigFormat {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return FormatYAML
	case "json":
		return FormatJSON
	case "toml":
		return FormatTOML
	default:
		return FormatUnknown
	}
}

// DetectFormat picks the format from the file extension. Files without a
// recognized extension are treated as YAML, the native format.
func DetectFormat(filePath string) ConfigFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// Document is a parsed runner config file before validation.
type Document struct {
	Header  map[string]any
	Entries []Entry
}

// Entry is one named group of setting overrides.
type Entry struct {
	Name   string
	Values map[string]any
}

// ParseDocument decodes data written in format.
func ParseDocument(data []byte, format ConfigFormat) (*Document, error) {
	switch format {
	case FormatYAML, FormatJSON:
		return parseYAMLDocument(data)
	case FormatTOML:
		return parseTOMLDocument(data)
	default:
		return nil, errors.New(ErrCodeUnsupportedFormat, "unsupported config format: "+format.String())
	}
}

func parseYAMLDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid YAML")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New(ErrCodeInvalidConfig, "empty config file")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, errors.New(ErrCodeInvalidConfig, "config file must be a mapping")
	}

	doc := &Document{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "header":
			if err := val.Decode(&doc.Header); err != nil {
				return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid header")
			}
		case "configs":
			if val.Kind != yaml.MappingNode {
				return nil, errors.New(ErrCodeInvalidConfig, "configs must be a mapping")
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				entry := Entry{Name: val.Content[j].Value}
				if err := val.Content[j+1].Decode(&entry.Values); err != nil {
					return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid config entry '"+entry.Name+"'")
				}
				if entry.Values == nil {
					entry.Values = map[string]any{}
				}
				doc.Entries = append(doc.Entries, entry)
			}
		}
	}
	return doc, nil
}

func parseTOMLDocument(data []byte) (*Document, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid TOML")
	}

	doc := &Document{}
	if h, ok := raw["header"].(map[string]any); ok {
		doc.Header = h
	}
	configs, _ := raw["configs"].(map[string]any)
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "configs" {
			continue
		}
		values, ok := configs[key[1]].(map[string]any)
		if !ok {
			return nil, errors.New(ErrCodeInvalidConfig, "invalid config entry '"+key[1]+"'")
		}
		doc.Entries = append(doc.Entries, Entry{Name: key[1], Values: values})
	}
	return doc, nil
}
