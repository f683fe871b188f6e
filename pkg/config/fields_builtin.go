// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/storage"
)

// init registers all built-in config fields
func init() {
	registerEnvironmentField()
	registerStringField("client-id", "Client ID", "AAD application id used for sign-in",
		func(cfg *Config) *string { return &cfg.ClientID }, nonEmpty)
	registerCallbackPortField()
	registerBoolField("skip-browser", "Skip Browser", "print the sign-in URL instead of opening a browser",
		func(cfg *Config) *bool { return &cfg.SkipBrowser })
	registerStringField("storage-type", "Storage Type", "where the signed-in user is kept: "+strings.Join(storage.Types, ", "),
		func(cfg *Config) *string { return &cfg.Storage.Type }, storage.ValidateType)
	registerStringField("storage-path", "Storage Path", "file or database path for the file and sqlite stores",
		func(cfg *Config) *string { return &cfg.Storage.Path }, nil)
	registerStringField("redis-addr", "Redis Address", "host:port of the redis store",
		func(cfg *Config) *string { return &cfg.Storage.RedisAddr }, nil)
	registerStringField("redis-prefix", "Redis Prefix", "key prefix in the redis store",
		func(cfg *Config) *string { return &cfg.Storage.RedisPrefix }, nil)
	registerBoolField("token-cache-persist", "Persist Tokens", "keep tokens in the OS keyring between runs",
		func(cfg *Config) *bool { return &cfg.TokenCache.Persist })
	registerStringField("keyring-service", "Keyring Service", "keyring service name for persisted tokens",
		func(cfg *Config) *string { return &cfg.TokenCache.KeyringService }, nil)
	registerOTELEndpointField()
	registerOTELSamplingRateField()
	registerBoolField("otel-insecure", "OTEL Insecure", "export traces over plain HTTP",
		func(cfg *Config) *bool { return &cfg.OTEL.Insecure })
}

func nonEmpty(value string) error {
	if value == "" {
		return fmt.Errorf("value must not be empty")
	}
	return nil
}

func registerStringField(name, display, help string, field func(*Config) *string, validate func(string) error) {
	RegisterConfigField(ConfigFieldSpec{
		Name:         name,
		SetValidator: validate,
		Setter:       func(cfg *Config, value string) { *field(cfg) = value },
		Getter:       func(cfg *Config) string { return *field(cfg) },
		Unsetter:     func(cfg *Config) { *field(cfg) = "" },
		DisplayName:  display,
		HelpText:     help,
	})
}

func registerBoolField(name, display, help string, field func(*Config) *bool) {
	RegisterConfigField(ConfigFieldSpec{
		Name: name,
		SetValidator: func(value string) error {
			_, err := strconv.ParseBool(value)
			return err
		},
		Setter: func(cfg *Config, value string) {
			b, _ := strconv.ParseBool(value)
			*field(cfg) = b
		},
		Getter:      func(cfg *Config) string { return strconv.FormatBool(*field(cfg)) },
		Unsetter:    func(cfg *Config) { *field(cfg) = false },
		DisplayName: display,
		HelpText:    help,
	})
}

func registerEnvironmentField() {
	RegisterConfigField(ConfigFieldSpec{
		Name: "environment",
		SetValidator: func(value string) error {
			_, err := environment.Get(value)
			return err
		},
		Setter: func(cfg *Config, value string) {
			env, _ := environment.Get(value)
			cfg.Environment = env.ID
		},
		Getter:      func(cfg *Config) string { return cfg.Environment },
		Unsetter:    func(cfg *Config) { cfg.Environment = environment.Azure.ID },
		DisplayName: "Environment",
		HelpText:    "Azure cloud to sign in to",
	})
}

func registerCallbackPortField() {
	RegisterConfigField(ConfigFieldSpec{
		Name: "callback-port",
		SetValidator: func(value string) error {
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid port format: %w", err)
			}
			if port < 0 || port > 65535 {
				return fmt.Errorf("port must be between 0 and 65535")
			}
			return nil
		},
		Setter: func(cfg *Config, value string) {
			cfg.CallbackPort, _ = strconv.Atoi(value)
		},
		Getter:      func(cfg *Config) string { return strconv.Itoa(cfg.CallbackPort) },
		Unsetter:    func(cfg *Config) { cfg.CallbackPort = 0 },
		DisplayName: "Callback Port",
		HelpText:    "loopback port for sign-in redirects, 0 picks a free port",
	})
}

func registerOTELEndpointField() {
	RegisterConfigField(ConfigFieldSpec{
		Name: "otel-endpoint",
		SetValidator: func(value string) error {
			// The endpoint should not start with http:// or https://
			if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
				return fmt.Errorf("endpoint URL should not start with http:// or https://")
			}
			return nil
		},
		Setter:      func(cfg *Config, value string) { cfg.OTEL.Endpoint = value },
		Getter:      func(cfg *Config) string { return cfg.OTEL.Endpoint },
		Unsetter:    func(cfg *Config) { cfg.OTEL.Endpoint = "" },
		DisplayName: "OTEL Endpoint",
		HelpText:    "OpenTelemetry OTLP endpoint for tracing",
	})
}

func registerOTELSamplingRateField() {
	RegisterConfigField(ConfigFieldSpec{
		Name: "otel-sampling-rate",
		SetValidator: func(value string) error {
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid sampling rate format: %w", err)
			}
			if rate < 0.0 || rate > 1.0 {
				return fmt.Errorf("sampling rate must be between 0.0 and 1.0")
			}
			return nil
		},
		Setter: func(cfg *Config, value string) {
			cfg.OTEL.SamplingRate, _ = strconv.ParseFloat(value, 64)
		},
		Getter: func(cfg *Config) string {
			return strconv.FormatFloat(cfg.OTEL.SamplingRate, 'f', -1, 64)
		},
		Unsetter:    func(cfg *Config) { cfg.OTEL.SamplingRate = 0 },
		DisplayName: "OTEL Sampling Rate",
		HelpText:    "ratio of traces exported, between 0 and 1",
	})
}
