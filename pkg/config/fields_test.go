// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"environment", "azurechina", "AzureChina", false},
		{"environment", "Mars", "", true},
		{"client-id", "my-app", "my-app", false},
		{"client-id", "", "", true},
		{"callback-port", "8400", "8400", false},
		{"callback-port", "70000", "", true},
		{"callback-port", "http", "", true},
		{"skip-browser", "true", "true", false},
		{"skip-browser", "sometimes", "", true},
		{"storage-type", "sqlite", "sqlite", false},
		{"storage-type", "floppy", "", true},
		{"token-cache-persist", "false", "false", false},
		{"otel-endpoint", "localhost:4318", "localhost:4318", false},
		{"otel-endpoint", "https://collector", "", true},
		{"otel-sampling-rate", "0.25", "0.25", false},
		{"otel-sampling-rate", "2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			err := SetField(cfg, tt.name, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, err := GetField(cfg, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsetField(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, SetField(cfg, "environment", "AzureUSGov"))
	require.NoError(t, UnsetField(cfg, "environment"))
	assert.Equal(t, "Azure", cfg.Environment)

	require.NoError(t, SetField(cfg, "callback-port", "9000"))
	require.NoError(t, UnsetField(cfg, "callback-port"))
	assert.Equal(t, 0, cfg.CallbackPort)
}

func TestUnknownField(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.ErrorContains(t, SetField(cfg, "registry-url", "x"), "unknown config key")
	_, err := GetField(cfg, "registry-url")
	assert.Error(t, err)
	assert.Error(t, UnsetField(cfg, "registry-url"))
}

func TestRegisterConfigField_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		RegisterConfigField(ConfigFieldSpec{Name: "incomplete"})
	})
	assert.Panics(t, func() {
		registerStringField("client-id", "dup", "dup", func(cfg *Config) *string { return &cfg.ClientID }, nil)
	})
}

func TestListConfigFields(t *testing.T) {
	t.Parallel()

	names := ListConfigFields()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "environment")
	assert.Contains(t, names, "storage-type")
	assert.Contains(t, names, "otel-endpoint")
}
