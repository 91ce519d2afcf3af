// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/internal/auth/postgres"
	"github.com/patrolhub/patrolhub/internal/config"
	"github.com/patrolhub/patrolhub/internal/store"
)

// backend bundles the persistence used by the maintenance commands.
type backend struct {
	accounts auth.AccountRepository
	sessions auth.SessionRepository
	hasher   auth.PasswordHasher
	close    func()
}

// backendFactory connects the maintenance commands to PostgreSQL. Tests
// replace it with an in-memory store.
var backendFactory = func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	opts := cfg.Database.OpenOptions()
	opts.Logger = logger
	pool, err := store.Open(ctx, cfg.Database.URL, opts)
	if err != nil {
		return nil, err
	}
	return &backend{
		accounts: postgres.NewAccountRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		hasher:   cfg.Auth.NewHasher(),
		close:    pool.Close,
	}, nil
}

// withBackend loads the configuration, connects and runs fn.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, cfg config.Config, b *backend) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := backendFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open database").Wrap(err)
	}
	defer b.close()

	return fn(ctx, cfg, b)
}

// resolveAccount finds an account by email or short id.
func resolveAccount(ctx context.Context, accounts auth.AccountRepository, raw string, width int) (*auth.Account, error) {
	id := auth.ClassifyIdentifier(raw, width)
	var (
		account *auth.Account
		err     error
	)
	if id.Kind == auth.IdentifierShortID {
		account, err = accounts.GetByShortID(ctx, id.Value)
	} else {
		account, err = accounts.GetByEmail(ctx, id.Value)
	}
	if errors.Is(err, auth.ErrNotFound) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("identifier", raw).Errorf("no account matches %q", raw)
	}
	if err != nil {
		return nil, oops.With("identifier", raw).Wrap(err)
	}
	return account, nil
}
