// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the bauth config structure
// and logic required to load and update it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/stacklok/toolhive-core/env"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/fileutils"
	"github.com/stacklok/batchauth/pkg/storage"
)

// Environment variables that override the config file.
const (
	EnvEnvironment = "BATCHAUTH_ENVIRONMENT"
	EnvClientID    = "BATCHAUTH_CLIENT_ID"
)

// DefaultClientID is the public Azure CLI application, which is registered
// for loopback redirects in every cloud.
const DefaultClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

// Config represents the configuration of bauth.
type Config struct {
	Environment string `yaml:"environment"`
	ClientID    string `yaml:"client_id"`
	// CallbackPort is the loopback port for redirects. Zero picks a free port.
	CallbackPort int                 `yaml:"callback_port"`
	SkipBrowser  bool                `yaml:"skip_browser,omitempty"`
	Storage      Storage             `yaml:"storage"`
	TokenCache   TokenCache          `yaml:"token_cache"`
	OTEL         OpenTelemetryConfig `yaml:"otel,omitempty"`
}

// Storage selects the durable store for the signed-in user.
type Storage struct {
	Type        string `yaml:"type"`
	Path        string `yaml:"path,omitempty"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// TokenCache controls whether tokens outlive the process.
type TokenCache struct {
	Persist        bool   `yaml:"persist"`
	KeyringService string `yaml:"keyring_service,omitempty"`
}

// OpenTelemetryConfig contains the settings for trace export.
type OpenTelemetryConfig struct {
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`
	Insecure     bool    `yaml:"insecure,omitempty"`
}

func getConfigPath() (string, error) {
	return xdg.ConfigFile("batchauth/config.yaml")
}

func createNewConfigWithDefaults() Config {
	return Config{
		Environment: environment.Azure.ID,
		ClientID:    DefaultClientID,
		Storage:     Storage{Type: storage.TypeFile},
		TokenCache:  TokenCache{Persist: true},
	}
}

// Default returns a config populated with defaults.
func Default() *Config {
	cfg := createNewConfigWithDefaults()
	return &cfg
}

// Validate checks the environment id and storage type.
func (c *Config) Validate() error {
	if _, err := environment.Get(c.Environment); err != nil {
		return err
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id must not be empty")
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("invalid callback_port %d", c.CallbackPort)
	}
	if err := storage.ValidateType(c.Storage.Type); err != nil {
		return err
	}
	if c.OTEL.SamplingRate < 0 || c.OTEL.SamplingRate > 1 {
		return fmt.Errorf("otel sampling_rate must be between 0 and 1")
	}
	return nil
}

// ApplyEnv overrides fields set through environment variables.
func (c *Config) ApplyEnv(envReader env.Reader) {
	if v := envReader.Getenv(EnvEnvironment); v != "" {
		c.Environment = v
	}
	if v := envReader.Getenv(EnvClientID); v != "" {
		c.ClientID = v
	}
}

// AzureEnvironment resolves the configured environment, falling back to the
// public cloud for an unknown id.
func (c *Config) AzureEnvironment() environment.AzureEnvironment {
	if env, err := environment.Get(c.Environment); err == nil {
		return env
	}
	return environment.Azure
}

// StorageConfig converts the storage section for storage.New.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Type: c.Storage.Type,
		Path: c.Storage.Path,
		Redis: storage.RedisConfig{
			Addr:      c.Storage.RedisAddr,
			KeyPrefix: c.Storage.RedisPrefix,
		},
	}
}

// saveToPath serializes the config struct and writes it to configPath.
func (c *Config) saveToPath(configPath string) error {
	configBytes, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error serializing config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := fileutils.AtomicWriteFile(configPath, configBytes, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
