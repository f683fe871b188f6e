// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package token holds AAD access tokens and the per tenant/resource cache.
package token

import (
	"time"

	"golang.org/x/oauth2"
)

// SafetyMargin is how long before its literal expiry a token is already
// treated as expired, so it is never handed out just before it lapses.
const SafetyMargin = 5 * time.Minute

// AccessToken is an access token issued for one tenant and resource.
// Values are never mutated; a refresh yields a new AccessToken.
type AccessToken struct {
	AccessToken  string    `json:"access_token"`
	ExpiresOn    time.Time `json:"expires_on"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Resource     string    `json:"resource,omitempty"`
}

// Expired reports whether the token is at or past its expiry minus margin.
func (t AccessToken) Expired(now time.Time, margin time.Duration) bool {
	return !now.Before(t.ExpiresOn.Add(-margin))
}

// HasRefreshToken reports whether the token can be refreshed without
// running the authorization flow again.
func (t AccessToken) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// OAuth2 converts the token for use with golang.org/x/oauth2 consumers.
// The safety margin is folded into Expiry so oauth2 will not reuse it late.
func (t AccessToken) OAuth2() *oauth2.Token {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    tokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresOn.Add(-SafetyMargin),
	}
}
