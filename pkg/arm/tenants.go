// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package arm talks to Azure Resource Manager.
package arm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/networking"
)

//go:generate mockgen -destination=mocks/mock_tenants.go -package=mocks -source=tenants.go TenantLister

// TenantsAPIVersion is the ARM API version used to list tenants.
const TenantsAPIVersion = "2016-06-01"

// maxPages bounds nextLink following.
const maxPages = 50

// TenantLister lists the tenants an ARM token can access.
type TenantLister interface {
	ListTenantIDs(ctx context.Context, accessToken string) ([]string, error)
}

type tenantsPage struct {
	Value []struct {
		ID       string `json:"id"`
		TenantID string `json:"tenantId"`
	} `json:"value"`
	NextLink string `json:"nextLink"`
}

// TenantClient lists tenants with GET {arm}/tenants.
type TenantClient struct {
	armURL string
	client networking.HTTPClient
}

var _ TenantLister = (*TenantClient)(nil)

// NewTenantClient returns a client for armURL. A nil client uses one with
// networking.HTTPTimeout.
func NewTenantClient(armURL string, client networking.HTTPClient) *TenantClient {
	if client == nil {
		client = &http.Client{Timeout: networking.HTTPTimeout}
	}
	return &TenantClient{armURL: strings.TrimSuffix(armURL, "/") + "/", client: client}
}

// ListTenantIDs implements TenantLister, following nextLink.
func (c *TenantClient) ListTenantIDs(ctx context.Context, accessToken string) ([]string, error) {
	next := c.armURL + "tenants?" + url.Values{"api-version": {TenantsAPIVersion}}.Encode()

	var ids []string
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("tenant listing exceeded %d pages", maxPages)
		}
		resp, err := networking.FetchJSON[tenantsPage](ctx, c.client, next,
			networking.WithBearerToken(accessToken))
		if err != nil {
			return nil, fmt.Errorf("failed to list tenants: %w", err)
		}
		for _, t := range resp.Value {
			if t.TenantID != "" {
				ids = append(ids, t.TenantID)
			}
		}
		next = resp.NextLink
	}
	logger.Debugw("Listed tenants", "count", len(ids))
	return ids, nil
}
