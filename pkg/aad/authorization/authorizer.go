// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package authorization runs the AAD v1 hybrid authorization code flow and
// returns the authorization code with the user's id_token.
package authorization

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/splash"
)

//go:generate mockgen -destination=mocks/mock_authorizer.go -package=mocks -source=authorizer.go Authorizer,Navigator

// Result is what a successful authorization yields.
type Result struct {
	IDToken string
	Code    string
}

// Authorizer obtains an authorization code for a tenant.
type Authorizer interface {
	// AuthorizeTrySilentFirst tries to reuse the provider session and falls
	// back to prompting the user.
	AuthorizeTrySilentFirst(ctx context.Context, tenant string) (*Result, error)
}

// Navigator sends the user agent to authorizeURL and returns the parameters
// of the redirect back to the application.
type Navigator interface {
	Navigate(ctx context.Context, authorizeURL string, interactive bool) (url.Values, error)
}

// Config configures a UserAuthorization.
type Config struct {
	// Environment selects the cloud. Zero value uses environment.Azure.
	Environment environment.AzureEnvironment
	// ClientID is the registered application id.
	ClientID string
	// RedirectURI must match the navigator's callback.
	RedirectURI string
	// Resource is requested with the code. Defaults to the ARM resource.
	Resource string
}

// UserAuthorization is the Authorizer driving a Navigator.
type UserAuthorization struct {
	config    Config
	navigator Navigator
	screen    splash.Screen
}

var _ Authorizer = (*UserAuthorization)(nil)

// NewUserAuthorization validates config and returns an authorizer. A nil
// screen disables splash updates.
func NewUserAuthorization(config Config, navigator Navigator, screen splash.Screen) (*UserAuthorization, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.RedirectURI == "" {
		return nil, errors.New("redirect URI is required")
	}
	if navigator == nil {
		return nil, errors.New("navigator is required")
	}
	if config.Environment.ID == "" {
		config.Environment = environment.Azure
	}
	if config.Resource == "" {
		config.Resource = config.Environment.ARMResource
	}
	if screen == nil {
		screen = splash.Noop{}
	}
	return &UserAuthorization{config: config, navigator: navigator, screen: screen}, nil
}

// AuthorizeTrySilentFirst implements Authorizer. Any silent failure other
// than cancellation leads to the interactive prompt.
func (a *UserAuthorization) AuthorizeTrySilentFirst(ctx context.Context, tenant string) (*Result, error) {
	result, err := a.Authorize(ctx, tenant, true)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ErrCancelled) {
		return nil, err
	}
	logger.Debugf("Silent authorization for tenant %s failed, prompting: %v", tenant, err)

	a.screen.UpdateMessage("Waiting for sign-in in your browser")
	a.screen.Hide()
	result, err = a.Authorize(ctx, tenant, false)
	a.screen.Show()
	return result, err
}

// Authorize runs a single authorization attempt. silent adds prompt=none so
// the provider fails rather than asking the user.
func (a *UserAuthorization) Authorize(ctx context.Context, tenant string, silent bool) (*Result, error) {
	state := uuid.NewString()
	authorizeURL := a.AuthorizeURL(tenant, state, uuid.NewString(), silent)
	params, err := a.navigator.Navigate(ctx, authorizeURL, !silent)
	if err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return nil, &FlowError{Code: CodeNavigation, cause: err}
	}
	return parseRedirect(params, state, !silent)
}

// AuthorizeURL builds the v1 authorize URL.
func (a *UserAuthorization) AuthorizeURL(tenant, state, nonce string, silent bool) string {
	cfg := &oauth2.Config{
		ClientID:    a.config.ClientID,
		RedirectURL: a.config.RedirectURI,
		Scopes:      []string{"openid"},
		Endpoint:    oauth2.Endpoint{AuthURL: a.config.Environment.AuthorizeURL(tenant)},
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", "id_token code"),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
		oauth2.SetAuthURLParam("resource", a.config.Resource),
		oauth2.SetAuthURLParam("nonce", nonce),
	}
	if silent {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "none"))
	}
	return cfg.AuthCodeURL(state, opts...)
}

// LogoutURL returns the sign-out endpoint for tenant.
func (a *UserAuthorization) LogoutURL(tenant string) string {
	return a.config.Environment.LogoutURL(tenant)
}

func parseRedirect(params url.Values, state string, interactive bool) (*Result, error) {
	if code := params.Get("error"); code != "" {
		return nil, errorFromRedirect(code, params.Get("error_description"), interactive)
	}
	if params.Get("state") != state {
		return nil, &FlowError{Code: CodeStateMismatch, Description: "redirect state does not match the request"}
	}
	result := &Result{Code: params.Get("code"), IDToken: params.Get("id_token")}
	if result.Code == "" {
		return nil, &FlowError{Code: CodeMissingCode, Description: "redirect has no authorization code"}
	}
	if result.IDToken == "" {
		return nil, &FlowError{Code: CodeMissingIDToken, Description: "redirect has no id_token"}
	}
	return result, nil
}
