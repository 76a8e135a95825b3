// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/contactbook/contactbook/internal/config"
	"github.com/contactbook/contactbook/internal/xdg"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

// sources falls back to the XDG config file when --config is not given.
func (o *rootOptions) sources() config.Sources {
	configFile := o.configFile
	if configFile == "" {
		configFile = xdg.DefaultConfigFile()
	}
	return config.Sources{ConfigFile: configFile, EnvFile: o.envFile}
}

// NewRootCmd creates the root command for the Contactbook CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{}, nil)
}

func newRootCmd(opts *rootOptions, deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contactbook",
		Short: "Contactbook - a contacts API with JWT authentication",
		Long: `Contactbook serves a REST API for managing personal contacts, with
email confirmation, JWT access and refresh tokens and avatar uploads.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (YAML, default: XDG_CONFIG_HOME/contactbook/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment (missing file is ignored)")

	cmd.AddCommand(newServeCmd(opts, deps))
	cmd.AddCommand(newMigrateCmd(opts, nil))
	cmd.AddCommand(newStatusCmd(opts))

	return cmd
}
