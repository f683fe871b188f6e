// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the bauth command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/batchauth/pkg/logger"
)

// NewRootCmd creates a new root command for the bauth CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "bauth",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "bauth signs in to Azure Active Directory and hands out access tokens",
		Long: `bauth signs in to Azure Active Directory and hands out access tokens for Azure Batch,
Azure Resource Manager and any other AAD resource.

Tokens are cached per tenant and resource. Expiring tokens are refreshed and, when that
fails, the user is signed in again through the browser, silently where possible.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range []string{"debug", "config", "yes"} {
				if err := viper.BindPFlag(name, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
					return err
				}
			}
			logger.Initialize()
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
	}

	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default is the XDG config directory)")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Accept confirmation prompts without asking")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newTenantsCmd())
	rootCmd.AddCommand(newEnvironmentsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
