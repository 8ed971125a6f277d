// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/plotshop/internal/config"
	"github.com/holomush/plotshop/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the plotshop CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plotshop",
		Short: "plotshop - a land-claim economy server",
		Long: `plotshop runs a land-claim economy: regions players rent or buy,
limits on how many they hold, bulk region stacking and sweeps that
reclaim land from inactive owners.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("plotshop %s (commit: %s, built: %s, config %s)\n", version, commit, date, config.SupportedVersions)
		},
	}
}

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	}
}

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := xdg.ConfigFile(configFile)
			if err != nil {
				return err
			}
			if path == "" {
				return oops.Code(config.CodeInvalidConfig).Errorf("no config file: pass --config or create %s", xdg.ConfigFileName)
			}
			cfg, err := config.Load(path, nil)
			if err != nil {
				return err
			}
			cmd.Printf("%s: ok (version %s)\n", path, cfg.Version)
			return nil
		},
	}
}
