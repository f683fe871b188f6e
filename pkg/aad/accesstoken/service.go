// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package accesstoken exchanges authorization codes and refresh tokens for
// access tokens at the AAD v1 token endpoint.
package accesstoken

import (
	"context"

	"github.com/stacklok/batchauth/pkg/aad/token"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go Service

// Service redeems and refreshes access tokens.
type Service interface {
	// Redeem exchanges a one-time authorization code. A code can only be
	// redeemed once at the provider.
	Redeem(ctx context.Context, resource, tenant, code string) (token.AccessToken, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, resource, tenant, refreshToken string) (token.AccessToken, error)
}
