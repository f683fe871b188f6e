// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/batchauth/pkg/aad"
	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/metrics"
)

type tokenOutput struct {
	Tenant      string    `json:"tenant"`
	Resource    string    `json:"resource"`
	AccessToken string    `json:"access_token"`
	ExpiresOn   time.Time `json:"expires_on"`
}

func newTokenCmd() *cobra.Command {
	var (
		tenant      string
		resources   []string
		raw         bool
		dumpMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print access tokens",
		Long: `Print access tokens for one or more resources in a tenant.

Resources may be given as URIs or as the aliases arm, batch and graph. Several resources
are fetched concurrently.

Examples:
  bauth token --resource batch
  bauth token --tenant contoso.onmicrosoft.com --resource arm --resource batch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			resolved := make([]string, len(resources))
			for i, r := range resources {
				resolved[i] = resolveResource(s.service.Environment(), r)
			}

			results := make([]tokenOutput, len(resolved))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, resource := range resolved {
				g.Go(func() error {
					tok, err := s.service.AccessTokenData(ctx, tenant, resource)
					if err != nil {
						return fmt.Errorf("failed to get token for %s: %w", resource, err)
					}
					results[i] = tokenOutput{
						Tenant:      tenant,
						Resource:    resource,
						AccessToken: tok.AccessToken,
						ExpiresOn:   tok.ExpiresOn,
					}
					return nil
				})
			}
			err = g.Wait()

			if dumpMetrics {
				if mErr := metrics.WriteText(cmd.ErrOrStderr(), s.registry); mErr != nil {
					return mErr
				}
			}
			if err != nil {
				return err
			}

			if raw {
				for _, r := range results {
					fmt.Fprintln(cmd.OutOrStdout(), r.AccessToken)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", aad.CommonTenant, "Tenant id or domain")
	cmd.Flags().StringSliceVar(&resources, "resource", []string{"arm"}, "Resource URI or alias (arm, batch, graph); repeatable")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the access tokens, one per line")
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "Write token metrics to stderr in Prometheus text format")
	return cmd
}

// resolveResource expands a resource alias for env.
func resolveResource(env environment.AzureEnvironment, resource string) string {
	switch strings.ToLower(resource) {
	case "arm":
		return env.ARMResource
	case "batch":
		return env.BatchResource
	case "graph":
		return env.AADGraphResource
	default:
		return resource
	}
}
