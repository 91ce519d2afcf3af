// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/internal/config"
)

// EnvAdminPassword supplies the create-admin password when --password is not set.
const EnvAdminPassword = "PATROLHUB_ADMIN_PASSWORD"

// createAdminConfig holds the flags of account create-admin.
type createAdminConfig struct {
	email    string
	fullName string
	password string
	role     string
}

// NewAccountCmd creates the account command and its subcommands.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administer accounts directly in the database",
		Long: `Administer accounts without going through the API. Used to bootstrap the
first admin and to recover access. IDENT is an email or a short id.`,
	}

	cmd.AddCommand(
		newCreateAdminCmd(),
		newSetActiveCmd("activate", "Activate an account", true),
		newSetActiveCmd("deactivate", "Deactivate an account and revoke its sessions", false),
		newSetRoleCmd(),
		newListAccountsCmd(),
	)
	return cmd
}

func newCreateAdminCmd() *cobra.Command {
	cfg := &createAdminConfig{}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an active admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, conf config.Config, b *backend) error {
				identity, err := createAdmin(ctx, b, conf.Auth.ShortIDWidth, cfg)
				if err != nil {
					return err
				}
				cmd.Printf("Created %s account %s (%s)\n", identity.Role, identity.ShortID, identity.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&cfg.fullName, "name", "", "full name (required)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password (default: $"+EnvAdminPassword+")")
	cmd.Flags().StringVar(&cfg.role, "role", string(auth.RoleAdmin), "role (admin or manager)")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("name")  //nolint:errcheck // flag is defined above

	return cmd
}

// createAdmin validates the input like registration does and stores an
// active account with a managing role.
func createAdmin(ctx context.Context, b *backend, width int, cfg *createAdminConfig) (auth.Identity, error) {
	password := cfg.password
	if password == "" {
		password = os.Getenv(EnvAdminPassword)
	}

	email, err := auth.NormalizeEmail(cfg.email)
	if err != nil {
		return auth.Identity{}, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return auth.Identity{}, err
	}
	fullName, err := auth.NormalizeFullName(cfg.fullName)
	if err != nil {
		return auth.Identity{}, err
	}
	role, err := auth.ParseRole(cfg.role)
	if err != nil {
		return auth.Identity{}, err
	}
	if !role.CanManageAccounts() {
		return auth.Identity{}, oops.Code("ROLE_NOT_ADMIN").
			With("role", role).
			Errorf("create-admin requires role admin or manager, got %q", role)
	}

	hash, err := b.hasher.Hash(password)
	if err != nil {
		return auth.Identity{}, oops.With("operation", "hash password").Wrap(err)
	}

	account := &auth.Account{
		Email:          email,
		FullName:       fullName,
		CredentialHash: hash,
		Role:           role,
		IsActive:       true,
	}
	err = b.accounts.Create(ctx, account, func(id int64) string { return auth.FormatShortID(id, width) })
	if errors.Is(err, auth.ErrConflict) {
		return auth.Identity{}, oops.Code("ACCOUNT_EMAIL_EXISTS").With("email", email).Errorf("an account with email %s already exists", email)
	}
	if err != nil {
		return auth.Identity{}, oops.With("operation", "create account").Wrap(err)
	}
	return account.Identity(), nil
}

func newSetActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " IDENT",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, conf config.Config, b *backend) error {
				account, err := resolveAccount(ctx, b.accounts, args[0], conf.Auth.ShortIDWidth)
				if err != nil {
					return err
				}
				if err := b.accounts.SetActive(ctx, account.ID, active); err != nil {
					return oops.With("account_id", account.ID).Wrap(err)
				}
				if !active {
					if err := b.sessions.RevokeAll(ctx, account.ID); err != nil {
						return oops.With("operation", "revoke sessions").With("account_id", account.ID).Wrap(err)
					}
				}
				cmd.Printf("Account %s %sd\n", account.ShortID, use)
				return nil
			})
		},
	}
}

func newSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role IDENT ROLE",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := auth.ParseRole(args[1])
			if err != nil {
				return err
			}
			return withBackend(cmd, func(ctx context.Context, conf config.Config, b *backend) error {
				account, err := resolveAccount(ctx, b.accounts, args[0], conf.Auth.ShortIDWidth)
				if err != nil {
					return err
				}
				if err := b.accounts.SetRole(ctx, account.ID, role); err != nil {
					return oops.With("account_id", account.ID).Wrap(err)
				}
				cmd.Printf("Account %s is now %s\n", account.ShortID, role)
				return nil
			})
		},
	}
}

func newListAccountsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := auth.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			return withBackend(cmd, func(ctx context.Context, _ config.Config, b *backend) error {
				accounts, err := b.accounts.List(ctx, filter)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "SHORT ID\tEMAIL\tNAME\tROLE\tACTIVE") //nolint:errcheck // flushed below
				for _, a := range accounts {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", a.ShortID, a.Email, a.FullName, a.Role, a.IsActive) //nolint:errcheck // flushed below
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", string(auth.StatusAll), "filter: all, pending or active")
	return cmd
}
