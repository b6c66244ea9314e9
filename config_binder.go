// config_binder.go: Fluent binding of resolved values into typed variables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"fmt"

	"github.com/agilira/go-errors"
)

type bindKind uint8

const (
	bindString bindKind = iota
	bindInt
	bindBool
	bindStrings
)

type binding struct {
	name   string
	kind   bindKind
	assign func(v any) error
}

// ConfigBinder copies resolved values into caller variables. Bindings are
// collected first and applied together by Apply, which either assigns
// every target or none.
//
//	var outDir string
//	var jobs int
//	err := daedalus.BindResolved(cfg).
//		BindString(&outDir, "out_dir").
//		BindInt(&jobs, "j").
//		Apply()
type ConfigBinder struct {
	cfg      *ResolvedConfig
	bindings []binding
}

// BindResolved starts a binder over cfg, which must be resolved by the time
// Apply is called.
func BindResolved(cfg *ResolvedConfig) *ConfigBinder {
	return &ConfigBinder{cfg: cfg, bindings: make([]binding, 0, 16)}
}

// BindString binds a string setting. Nil values bind as "".
func (cb *ConfigBinder) BindString(target *string, name string) *ConfigBinder {
	cb.bindings = append(cb.bindings, binding{name: name, kind: bindString, assign: func(v any) error {
		switch s := v.(type) {
		case nil:
			*target = ""
		case string:
			*target = s
		default:
			*target = fmt.Sprint(s)
		}
		return nil
	}})
	return cb
}

// BindInt binds an integer setting.
func (cb *ConfigBinder) BindInt(target *int, name string) *ConfigBinder {
	cb.bindings = append(cb.bindings, binding{name: name, kind: bindInt, assign: func(v any) error {
		n, err := Int(nil, v)
		if err != nil {
			return err
		}
		*target = n.(int)
		return nil
	}})
	return cb
}

// BindBool binds a boolean setting.
func (cb *ConfigBinder) BindBool(target *bool, name string) *ConfigBinder {
	cb.bindings = append(cb.bindings, binding{name: name, kind: bindBool, assign: func(v any) error {
		b, err := Bool(nil, v)
		if err != nil {
			return err
		}
		*target = b.(bool)
		return nil
	}})
	return cb
}

// BindStrings binds a list setting.
func (cb *ConfigBinder) BindStrings(target *[]string, name string) *ConfigBinder {
	cb.bindings = append(cb.bindings, binding{name: name, kind: bindStrings, assign: func(v any) error {
		*target = toStrings(v)
		return nil
	}})
	return cb
}

// Apply checks every binding and then assigns all targets.
func (cb *ConfigBinder) Apply() error {
	if !cb.cfg.Resolved() {
		return errors.New(ErrCodeNotResolved, "cannot bind an unresolved config")
	}
	values := make([]any, len(cb.bindings))
	for i, b := range cb.bindings {
		v, err := cb.cfg.Value(b.name)
		if err != nil {
			return err
		}
		values[i] = v
	}
	// Dry run on scratch targets so a conversion failure leaves the real
	// targets untouched.
	for i, b := range cb.bindings {
		if err := dryAssign(b.kind, values[i]); err != nil {
			return errors.Wrap(err, ErrCodeTypeMismatch, "failed to bind setting '"+b.name+"'").
				WithContext("setting", b.name)
		}
	}
	for i, b := range cb.bindings {
		if err := b.assign(values[i]); err != nil {
			return errors.Wrap(err, ErrCodeTypeMismatch, "failed to bind setting '"+b.name+"'")
		}
	}
	return nil
}

func dryAssign(kind bindKind, v any) error {
	var err error
	switch kind {
	case bindInt:
		_, err = Int(nil, v)
	case bindBool:
		_, err = Bool(nil, v)
	}
	return err
}
