// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stacklok/batchauth/pkg/aad"
	"github.com/stacklok/batchauth/pkg/aad/user"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Azure Active Directory",
		Long: `Sign in to Azure Active Directory through the system browser.

An existing browser session is reused without prompting when possible. Signing in to a
national cloud asks for confirmation first; pass --yes to accept it.`,
		Args: cobra.NoArgs,
		RunE: loginCmdFunc,
	}
}

func loginCmdFunc(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(cmd.Context()))

	if err := s.service.Login(cmd.Context()).Wait(cmd.Context()); err != nil {
		return err
	}

	u := s.service.CurrentUser().Get()
	if u == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Login cancelled")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s as %s\n", s.service.Environment().Name, u.Key())
	if tenants := s.service.TenantIDs().Get(); len(tenants) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Tenants: %d\n", len(tenants))
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget cached tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			if err := s.service.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			fmt.Fprintf(cmd.OutOrStdout(), "To also end the browser session, open %s\n",
				s.authorizer.LogoutURL(aad.CommonTenant))
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			u := s.service.CurrentUser().Get()
			if u == nil {
				return fmt.Errorf("not signed in, run 'bauth login'")
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), u)
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the user as JSON")
	return cmd
}

func printUser(w io.Writer, u *user.AADUser) {
	fmt.Fprintf(w, "Name:   %s\n", u.DisplayName())
	fmt.Fprintf(w, "User:   %s\n", u.Key())
	fmt.Fprintf(w, "Tenant: %s\n", u.Tid)
	fmt.Fprintf(w, "Object: %s\n", u.Oid)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
