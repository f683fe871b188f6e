// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/batchauth/pkg/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage application configuration",
		Long:  "The config command provides subcommands to manage bauth configuration settings.",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			value, err := config.GetField(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Example:
  bauth config set environment AzureChina
  bauth config set storage-type sqlite`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewLocalStore(viper.GetString("config"))
			if err := store.Update(cmd.Context(), func(cfg *config.Config) error {
				return config.SetField(cfg, args[0], args[1])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", args[0], args[1])
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Restore a configuration value to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewLocalStore(viper.GetString("config"))
			if err := store.Update(cmd.Context(), func(cfg *config.Config) error {
				return config.UnsetField(cfg, args[0])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configuration keys and values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE\tDESCRIPTION")
			for _, name := range config.ListConfigFields() {
				spec, _ := config.GetConfigField(name)
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, spec.Getter(cfg), spec.HelpText)
			}
			return w.Flush()
		},
	})

	return configCmd
}
