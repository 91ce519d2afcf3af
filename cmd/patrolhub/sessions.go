// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/patrolhub/patrolhub/internal/config"
)

// NewSessionsCmd creates the sessions command.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Long: `Delete sessions whose expiry has passed. Expired sessions are already
rejected at verification, so pruning only reclaims space.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, _ config.Config, b *backend) error {
				n, err := b.sessions.DeleteExpired(ctx)
				if err != nil {
					return oops.With("operation", "prune sessions").Wrap(err)
				}
				cmd.Printf("Deleted %d expired sessions\n", n)
				return nil
			})
		},
	})
	return cmd
}
