// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/patrolhub/patrolhub/internal/config"
	"github.com/patrolhub/patrolhub/internal/logging"
	"github.com/patrolhub/patrolhub/internal/xdg"
)

const serviceName = "patrolhub"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the PatrolHub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patrolhub",
		Short: "PatrolHub - authentication and account service",
		Long: `PatrolHub serves account registration, login and session management
for the patrol dispatch applications, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/patrolhub/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig resolves the configuration for cmd from the config file, the
// flags the user changed and the environment. Without --config the file at
// $XDG_CONFIG_HOME/patrolhub/config.yaml is used when present.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.DefaultConfigFile()
		if err != nil {
			return config.Config{}, err
		}
		path = found
	}
	return config.Load(path, cmd.Flags())
}

// setupLogger installs the process logger described by cfg.
func setupLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(serviceName, version, cfg.Format, level), nil
}
