// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/batchauth/pkg/aad"
)

func newTenantsCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List the tenants of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			accessToken, err := s.service.AccessTokenFor(cmd.Context(), aad.CommonTenant, s.service.Environment().ARMResource)
			if err != nil {
				return err
			}
			ids, err := s.tenants.ListTenantIDs(cmd.Context(), accessToken)
			if err != nil {
				return err
			}
			s.service.TenantIDs().Set(ids)

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output tenant ids as JSON")
	return cmd
}
