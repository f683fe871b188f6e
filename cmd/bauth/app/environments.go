// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stacklok/batchauth/pkg/aad/environment"
)

func newEnvironmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "environments",
		Short: "List the Azure clouds bauth can sign in to",
		Long: `List the Azure clouds bauth can sign in to. The current one is marked with *.
Select one with 'bauth config set environment <id>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			current := cfg.AzureEnvironment().ID

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tNAME\tLOGIN\tNATIONAL")
			for _, env := range environment.All() {
				marker := ""
				if env.ID == current {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", marker, env.ID, env.Name, env.AADURL, env.IsNational())
			}
			return w.Flush()
		},
	}
}
