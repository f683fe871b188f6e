// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"slices"
	"sync"
)

// ConfigFieldSpec describes a config key editable with `bauth config`.
type ConfigFieldSpec struct {
	// Name is the key used on the command line, e.g. "callback-port".
	Name string
	// SetValidator rejects a value before it is applied.
	SetValidator func(value string) error
	Setter       func(cfg *Config, value string)
	Getter       func(cfg *Config) string
	Unsetter     func(cfg *Config)
	DisplayName  string
	HelpText     string
}

var (
	fieldsMu sync.RWMutex
	fields   = map[string]ConfigFieldSpec{}
)

// RegisterConfigField adds a field. It panics on an incomplete spec or a
// duplicate name.
func RegisterConfigField(spec ConfigFieldSpec) {
	if spec.Name == "" || spec.Setter == nil || spec.Getter == nil || spec.Unsetter == nil {
		panic(fmt.Sprintf("config field %q is missing a name, setter, getter or unsetter", spec.Name))
	}
	fieldsMu.Lock()
	defer fieldsMu.Unlock()
	if _, exists := fields[spec.Name]; exists {
		panic(fmt.Sprintf("config field %q already registered", spec.Name))
	}
	fields[spec.Name] = spec
}

// GetConfigField looks a field up by name.
func GetConfigField(name string) (ConfigFieldSpec, bool) {
	fieldsMu.RLock()
	defer fieldsMu.RUnlock()
	spec, ok := fields[name]
	return spec, ok
}

// ListConfigFields returns the field names in sorted order.
func ListConfigFields() []string {
	fieldsMu.RLock()
	defer fieldsMu.RUnlock()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetField validates value and applies it to cfg.
func SetField(cfg *Config, name, value string) error {
	spec, ok := GetConfigField(name)
	if !ok {
		return fmt.Errorf("unknown config key %q", name)
	}
	if spec.SetValidator != nil {
		if err := spec.SetValidator(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}
	spec.Setter(cfg, value)
	return nil
}

// GetField returns the current value of name.
func GetField(cfg *Config, name string) (string, error) {
	spec, ok := GetConfigField(name)
	if !ok {
		return "", fmt.Errorf("unknown config key %q", name)
	}
	return spec.Getter(cfg), nil
}

// UnsetField restores name to its empty value.
func UnsetField(cfg *Config, name string) error {
	spec, ok := GetConfigField(name)
	if !ok {
		return fmt.Errorf("unknown config key %q", name)
	}
	spec.Unsetter(cfg)
	return nil
}
