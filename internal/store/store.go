// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

// Package store opens the PostgreSQL pool and manages the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectTimeout  = 5 * time.Second
	connectBackoffBase     = 500 * time.Millisecond
	connectBackoffCap      = 10 * time.Second
)

// OpenOptions controls how Open establishes the pool.
type OpenOptions struct {
	// Attempts is the number of pings tried before giving up.
	Attempts int
	// Timeout bounds each ping.
	Timeout time.Duration
	// Logger receives a warning per failed attempt.
	Logger *slog.Logger
}

// Open creates a pgx pool for databaseURL and pings it with exponential
// backoff until it answers or the attempts run out.
func Open(ctx context.Context, databaseURL string, opts OpenOptions) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_URL_MISSING").Errorf("database URL is required")
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultConnectAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database URL").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithCappedDuration(connectBackoffCap, retry.NewExponential(connectBackoffBase))
	backoff = retry.WithMaxRetries(uint64(opts.Attempts-1), backoff) //nolint:gosec // Attempts is positive

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			opts.Logger.WarnContext(ctx, "database not reachable",
				"attempt", attempt,
				"max_attempts", opts.Attempts,
				"host", cfg.ConnConfig.Host,
				"error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
