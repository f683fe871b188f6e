// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package aad acquires and caches Azure Active Directory access tokens for
// any (tenant, resource) pair and tracks the signed-in user.
package aad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/stacklok/batchauth/pkg/aad/accesstoken"
	"github.com/stacklok/batchauth/pkg/aad/authorization"
	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/aad/token"
	"github.com/stacklok/batchauth/pkg/aad/user"
	"github.com/stacklok/batchauth/pkg/arm"
	"github.com/stacklok/batchauth/pkg/dialog"
	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/metrics"
	"github.com/stacklok/batchauth/pkg/observable"
	"github.com/stacklok/batchauth/pkg/splash"
	"github.com/stacklok/batchauth/pkg/storage"
)

const instrumentationName = "github.com/stacklok/batchauth/pkg/aad"

// CommonTenant is the multi-tenant endpoint used for the initial sign-in.
const CommonTenant = "common"

// ErrAlreadyInitialized is returned by a second call to Init.
var ErrAlreadyInitialized = errors.New("aad service already initialized")

// State is the lifecycle state of a Service.
type State int32

// Service states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateAuthorizing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateAuthorizing:
		return "authorizing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Initializer is implemented by caches that load persisted entries.
type Initializer interface {
	Init(ctx context.Context) error
}

// Options holds the collaborators of a Service. Authorizer and AccessTokens
// are required; everything else has a default.
type Options struct {
	Environment  environment.AzureEnvironment
	DataStore    storage.DataStore
	Cache        token.Cache
	Authorizer   authorization.Authorizer
	AccessTokens accesstoken.Service
	Decoder      user.Decoder
	Dialog       dialog.Dialog
	Splash       splash.Screen
	// Tenants, when set, is used after login to list the user's tenants.
	Tenants        arm.TenantLister
	Metrics        *metrics.Metrics
	TracerProvider trace.TracerProvider
	Now            func() time.Time
}

// Service owns the token cache and the current user.
type Service struct {
	env          environment.AzureEnvironment
	store        storage.DataStore
	cache        token.Cache
	authorizer   authorization.Authorizer
	accessTokens accesstoken.Service
	decoder      user.Decoder
	dialog       dialog.Dialog
	splash       splash.Screen
	tenants      arm.TenantLister
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time

	// loginMu serializes logins.
	loginMu     sync.Mutex
	state       atomic.Int32
	currentUser *observable.Value[*user.AADUser]
	tenantIDs   *observable.Value[[]string]
}

// NewService creates a Service. Call Init before use.
func NewService(opts Options) (*Service, error) {
	if opts.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if opts.AccessTokens == nil {
		return nil, errors.New("access token service is required")
	}

	s := &Service{
		env:          opts.Environment,
		store:        opts.DataStore,
		cache:        opts.Cache,
		authorizer:   opts.Authorizer,
		accessTokens: opts.AccessTokens,
		decoder:      opts.Decoder,
		dialog:       opts.Dialog,
		splash:       opts.Splash,
		tenants:      opts.Tenants,
		metrics:      opts.Metrics,
		now:          opts.Now,
		currentUser:  observable.NewValue[*user.AADUser](nil),
		tenantIDs:    observable.NewValue[[]string](nil),
	}
	if s.env.ID == "" {
		s.env = environment.Azure
	}
	if s.store == nil {
		s.store = storage.NewMemoryStore()
	}
	if s.cache == nil {
		s.cache = token.NewMemoryCache()
	}
	if s.decoder == nil {
		s.decoder = user.NewJWTDecoder()
	}
	if s.dialog == nil {
		s.dialog = dialog.StaticDialog{}
	}
	if s.splash == nil {
		s.splash = splash.Noop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(instrumentationName)
	return s, nil
}

// Environment returns the cloud the service signs in to.
func (s *Service) Environment() environment.AzureEnvironment {
	return s.env
}

// State returns the lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// CurrentUser is the signed-in user, nil when signed out.
func (s *Service) CurrentUser() *observable.Value[*user.AADUser] {
	return s.currentUser
}

// TenantIDs lists the tenants the user belongs to, loaded after login.
func (s *Service) TenantIDs() *observable.Value[[]string] {
	return s.tenantIDs
}

// Init loads the persisted user and the persisted token cache. Storage
// problems leave the service signed out and are not returned.
func (s *Service) Init(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return ErrAlreadyInitialized
	}
	defer s.state.Store(int32(StateReady))

	if c, ok := s.cache.(Initializer); ok {
		if err := c.Init(ctx); err != nil {
			logger.Warnf("Failed to load token cache, starting empty: %v", err)
		}
	}
	s.currentUser.Set(s.loadUser(ctx))
	return nil
}

func (s *Service) loadUser(ctx context.Context) *user.AADUser {
	raw, err := s.store.GetItem(ctx, storage.KeyCurrentUser)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.Warnf("Failed to read the current user: %v", err)
		return nil
	}

	var u user.AADUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		logger.Warnf("Ignoring unreadable current user: %v", err)
		return nil
	}
	if u.Key() == "" {
		logger.Warn("Ignoring persisted user without a user name")
		return nil
	}
	logger.Debugw("Restored current user", "user", u.Key())
	return &u
}

func (s *Service) persistUser(ctx context.Context, u *user.AADUser) {
	data, err := json.Marshal(u)
	if err != nil {
		logger.Warnf("Failed to serialize the current user: %v", err)
		return
	}
	if err := s.store.SetItem(ctx, storage.KeyCurrentUser, string(data)); err != nil {
		logger.Warnf("Failed to persist the current user: %v", err)
	}
}

func (s *Service) forgetUser(ctx context.Context) error {
	s.currentUser.Set(nil)
	if err := s.store.RemoveItem(ctx, storage.KeyCurrentUser); err != nil {
		return fmt.Errorf("failed to remove the current user: %w", err)
	}
	return nil
}

// AccessTokenData returns a token for resource in tenant. A cached token
// outside the safety margin is returned as is. An expiring token with a
// refresh token is refreshed; a failed refresh, or no cached token at all,
// leads to a full reauthorization of the user.
//
// Concurrent calls for the same key are not combined: each may refresh or
// redeem, and the last token stored wins.
func (s *Service) AccessTokenData(ctx context.Context, tenant, resource string) (token.AccessToken, error) {
	ctx, span := s.tracer.Start(ctx, "aad.AccessTokenData",
		trace.WithAttributes(
			attribute.String("aad.tenant", tenant),
			attribute.String("aad.resource", resource),
		),
	)
	defer span.End()

	return s.acquire(ctx, span, func(ctx context.Context) (token.AccessToken, string, error) {
		return s.accessTokenData(ctx, tenant, resource)
	})
}

// acquire runs fetch and records its outcome on span and in metrics.
func (s *Service) acquire(
	ctx context.Context,
	span trace.Span,
	fetch func(context.Context) (token.AccessToken, string, error),
) (token.AccessToken, error) {
	start := s.now()
	tok, outcome, err := fetch(ctx)
	s.metrics.RecordAcquisition(outcome, s.now().Sub(start))
	span.SetAttributes(attribute.String("aad.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return token.AccessToken{}, err
	}
	return tok, nil
}

func (s *Service) accessTokenData(ctx context.Context, tenant, resource string) (token.AccessToken, string, error) {
	cached, ok := s.cache.GetToken(tenant, resource)
	if ok && !cached.Expired(s.now(), token.SafetyMargin) {
		return cached, metrics.OutcomeCacheHit, nil
	}

	if ok && cached.HasRefreshToken() {
		refreshed, err := s.accessTokens.Refresh(ctx, resource, tenant, cached.RefreshToken)
		if err == nil {
			s.cache.StoreToken(tenant, resource, refreshed)
			return refreshed, metrics.OutcomeRefresh, nil
		}
		if !errors.Is(err, accesstoken.ErrExchange) {
			return token.AccessToken{}, metrics.OutcomeError, err
		}
		logger.Debugw("Refresh failed, reauthorizing", "tenant", tenant, "resource", resource, "error", err)
		s.metrics.RecordAcquisition(metrics.OutcomeRefreshFailed, 0)
	}

	return s.reauthorize(ctx, tenant, resource)
}

// reauthorize signs the user in again, records who they are and redeems a
// new token for resource in tenant.
func (s *Service) reauthorize(ctx context.Context, tenant, resource string) (token.AccessToken, string, error) {
	result, err := s.authorizer.AuthorizeTrySilentFirst(ctx, tenant)
	if err != nil {
		return token.AccessToken{}, metrics.OutcomeError, err
	}

	u, err := s.decoder.Decode(result.IDToken)
	if err != nil {
		if forgetErr := s.forgetUser(ctx); forgetErr != nil {
			logger.Warn(forgetErr.Error())
		}
		return token.AccessToken{}, metrics.OutcomeError, err
	}
	s.persistUser(ctx, u)
	s.currentUser.Set(u)

	redeemed, err := s.accessTokens.Redeem(ctx, resource, tenant, result.Code)
	if err != nil {
		return token.AccessToken{}, metrics.OutcomeError, err
	}
	s.cache.StoreToken(tenant, resource, redeemed)
	return redeemed, metrics.OutcomeRedeem, nil
}

// AccessTokenFor returns the raw access token for resource in tenant.
func (s *Service) AccessTokenFor(ctx context.Context, tenant, resource string) (string, error) {
	tok, err := s.AccessTokenData(ctx, tenant, resource)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// TokenSource adapts the service to oauth2 clients. Tokens are reused until
// they enter the safety margin.
func (s *Service) TokenSource(ctx context.Context, tenant, resource string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: ctx, service: s, tenant: tenant, resource: resource})
}

type tokenSource struct {
	ctx      context.Context
	service  *Service
	tenant   string
	resource string
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.service.AccessTokenData(ts.ctx, ts.tenant, ts.resource)
	if err != nil {
		return nil, err
	}
	return tok.OAuth2(), nil
}

// Logout drops every cached token and the signed-in user. In-memory state is
// always cleared; an error means the persisted user could not be removed.
func (s *Service) Logout(ctx context.Context) error {
	s.cache.Clear()
	s.tenantIDs.Set(nil)
	if err := s.forgetUser(ctx); err != nil {
		return err
	}
	logger.Info("Signed out")
	return nil
}
