// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package aad

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/batchauth/pkg/aad/authorization"
	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/aad/token"
	"github.com/stacklok/batchauth/pkg/dialog"
	"github.com/stacklok/batchauth/pkg/logger"
)

// Login results recorded in metrics.
const (
	loginSuccess   = "success"
	loginCancelled = "cancelled"
	loginError     = "error"
)

// LoginOperation is a login running in the background.
type LoginOperation struct {
	done chan struct{}
	err  error
}

// Done is closed when the login finishes.
func (o *LoginOperation) Done() <-chan struct{} {
	return o.done
}

// Err returns the login error once Done is closed. A cancelled login is not
// an error.
func (o *LoginOperation) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the login finishes or ctx is done.
func (o *LoginOperation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login signs the user in to the common tenant for ARM. National clouds ask
// for confirmation first. When the user cancels, the login finishes without
// error and nothing changes.
func (s *Service) Login(ctx context.Context) *LoginOperation {
	op := &LoginOperation{done: make(chan struct{})}
	go func() {
		defer close(op.done)
		op.err = s.login(ctx)
	}()
	return op
}

func (s *Service) login(ctx context.Context) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	prev := s.state.Swap(int32(StateAuthorizing))
	defer s.state.Store(prev)

	s.splash.UpdateMessage("Signing in to " + s.env.Name)

	if s.env.IsNational() {
		proceed, err := s.confirmNationalCloud(ctx)
		if err != nil {
			s.metrics.RecordLogin(loginError)
			return err
		}
		if !proceed {
			logger.Info("Login cancelled")
			s.metrics.RecordLogin(loginCancelled)
			return nil
		}
	}

	if err := s.signIn(ctx); err != nil {
		if errors.Is(err, authorization.ErrCancelled) {
			logger.Info("Login cancelled")
			s.metrics.RecordLogin(loginCancelled)
			return nil
		}
		s.metrics.RecordLogin(loginError)
		return fmt.Errorf("login failed: %w", err)
	}

	if s.tenants != nil {
		s.splash.UpdateMessage("Loading tenants")
		s.loadTenants(ctx)
	}

	s.metrics.RecordLogin(loginSuccess)
	if u := s.currentUser.Get(); u != nil {
		logger.Infow("Signed in", "user", u.Key(), "environment", s.env.ID)
	}
	return nil
}

// signIn gets the ARM token for the common tenant. Without a known user a
// cached token is not enough: the user is authorized again so that they are
// decoded and remembered.
func (s *Service) signIn(ctx context.Context) error {
	if s.currentUser.Get() != nil {
		_, err := s.AccessTokenData(ctx, CommonTenant, s.env.ARMResource)
		return err
	}

	ctx, span := s.tracer.Start(ctx, "aad.AccessTokenData",
		trace.WithAttributes(
			attribute.String("aad.tenant", CommonTenant),
			attribute.String("aad.resource", s.env.ARMResource),
			attribute.Bool("aad.reauthorize", true),
		),
	)
	defer span.End()

	_, err := s.acquire(ctx, span, func(ctx context.Context) (token.AccessToken, string, error) {
		return s.reauthorize(ctx, CommonTenant, s.env.ARMResource)
	})
	return err
}

func (s *Service) confirmNationalCloud(ctx context.Context) (bool, error) {
	opts := nationalCloudWarning(s.env)
	choice, err := s.dialog.ShowMessageBox(ctx, opts)
	if err != nil {
		return false, fmt.Errorf("failed to confirm %s sign-in: %w", s.env.Name, err)
	}
	return choice != opts.CancelID, nil
}

func nationalCloudWarning(env environment.AzureEnvironment) dialog.MessageBoxOptions {
	return dialog.MessageBoxOptions{
		Type:    dialog.TypeWarning,
		Title:   "National cloud",
		Message: fmt.Sprintf("You are signing in to %s.", env.Name),
		Detail: "National clouds are operated separately from global Azure. " +
			"Some features may be unavailable and separate terms may apply.",
		Buttons:   []string{"Continue", "Cancel"},
		DefaultID: 0,
		CancelID:  1,
	}
}

// loadTenants lists the user's tenants with the token obtained at login.
// Failures leave the previous list in place.
func (s *Service) loadTenants(ctx context.Context) {
	tok, err := s.AccessTokenData(ctx, CommonTenant, s.env.ARMResource)
	if err != nil {
		logger.Warnf("Failed to get a token to list tenants: %v", err)
		return
	}
	ids, err := s.tenants.ListTenantIDs(ctx, tok.AccessToken)
	if err != nil {
		logger.Warnf("Failed to list tenants: %v", err)
		return
	}
	s.tenantIDs.Set(ids)
}
