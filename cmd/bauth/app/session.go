// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stacklok/toolhive-core/env"

	"github.com/stacklok/batchauth/pkg/aad"
	"github.com/stacklok/batchauth/pkg/aad/accesstoken"
	"github.com/stacklok/batchauth/pkg/aad/authorization"
	"github.com/stacklok/batchauth/pkg/aad/token"
	"github.com/stacklok/batchauth/pkg/arm"
	"github.com/stacklok/batchauth/pkg/config"
	"github.com/stacklok/batchauth/pkg/dialog"
	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/metrics"
	"github.com/stacklok/batchauth/pkg/networking"
	"github.com/stacklok/batchauth/pkg/secrets"
	"github.com/stacklok/batchauth/pkg/splash"
	"github.com/stacklok/batchauth/pkg/storage"
	"github.com/stacklok/batchauth/pkg/telemetry"
	"github.com/stacklok/batchauth/pkg/versions"
)

// session holds everything a command needs to talk to AAD.
type session struct {
	cfg        *config.Config
	service    *aad.Service
	authorizer *authorization.UserAuthorization
	tenants    *arm.TenantClient
	registry   *prometheus.Registry
	store      storage.DataStore
	telemetry  *telemetry.Provider
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	return config.LoadOrCreateConfig(ctx, viper.GetString("config"), &env.OSReader{})
}

// newSession wires the AAD service from the config file and initializes it.
func newSession(cmd *cobra.Command) (_ *session, err error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	azureEnv := cfg.AzureEnvironment()
	s := &session{cfg: cfg}
	defer func() {
		if err != nil {
			s.Close(context.WithoutCancel(ctx))
		}
	}()

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.Endpoint = cfg.OTEL.Endpoint
	telemetryCfg.Insecure = cfg.OTEL.Insecure
	telemetryCfg.ServiceVersion = versions.GetVersionInfo().Version
	if cfg.OTEL.SamplingRate > 0 {
		telemetryCfg.SamplingRate = cfg.OTEL.SamplingRate
	}
	s.telemetry, err = telemetry.NewProvider(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	s.store = openStore(ctx, cfg.StorageConfig())

	var cache token.Cache = token.NewMemoryCache()
	if cfg.TokenCache.Persist {
		provider := secrets.NewDefaultProvider()
		logger.Debugw("Persisting tokens", "backend", provider.Name())
		cache = token.NewPersistentCache(provider, cfg.TokenCache.KeyringService)
	}

	navigator, err := authorization.NewLoopbackNavigator(cfg.CallbackPort,
		authorization.WithSkipBrowser(cfg.SkipBrowser))
	if err != nil {
		return nil, err
	}
	screen := splash.NewTerminalScreen(cmd.ErrOrStderr(), "bauth")
	s.authorizer, err = authorization.NewUserAuthorization(authorization.Config{
		Environment: azureEnv,
		ClientID:    cfg.ClientID,
		RedirectURI: navigator.RedirectURI(),
	}, navigator, screen)
	if err != nil {
		return nil, err
	}

	client, err := networking.NewHTTPClientBuilder().Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	tokens := accesstoken.NewHTTPService(azureEnv, cfg.ClientID, navigator.RedirectURI(),
		accesstoken.WithHTTPClient(client),
		accesstoken.WithTracerProvider(s.telemetry.TracerProvider()),
	)
	s.tenants = arm.NewTenantClient(azureEnv.ARMURL, client)

	var d dialog.Dialog = dialog.NewTerminalDialog(cmd.InOrStdin(), cmd.ErrOrStderr())
	if viper.GetBool("yes") {
		d = dialog.StaticDialog{Answer: 0}
	}

	var m *metrics.Metrics
	s.registry, m = metrics.NewRegistry()

	s.service, err = aad.NewService(aad.Options{
		Environment:    azureEnv,
		DataStore:      s.store,
		Cache:          cache,
		Authorizer:     s.authorizer,
		AccessTokens:   tokens,
		Dialog:         d,
		Splash:         screen,
		Tenants:        s.tenants,
		Metrics:        m,
		TracerProvider: s.telemetry.TracerProvider(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.service.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// openStore opens the configured data store. An unavailable store leaves
// the session signed out for this run instead of failing the command.
func openStore(ctx context.Context, cfg storage.Config) storage.DataStore {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Warnf("Failed to open %s data store, the signed-in user will not be remembered: %v", cfg.Type, err)
		return storage.NewMemoryStore()
	}
	return store
}

// Close releases the data store and flushes traces.
func (s *session) Close(ctx context.Context) {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.telemetry != nil {
		errs = append(errs, s.telemetry.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warnf("Failed to close session: %v", err)
	}
}
