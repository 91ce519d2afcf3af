// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/internal/auth/postgres"
	"github.com/patrolhub/patrolhub/internal/config"
	"github.com/patrolhub/patrolhub/internal/observability"
	"github.com/patrolhub/patrolhub/internal/store"
	"github.com/patrolhub/patrolhub/internal/web"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolOpener connects to PostgreSQL.
	// Default: store.Open
	PoolOpener func(ctx context.Context, databaseURL string, opts store.OpenOptions) (*pgxpool.Pool, error)

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		Long: `Start the HTTP API serving /api/auth and /api/accounts, together with
the metrics and health probe listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
}

// runServeWithDeps runs the API until ctx is cancelled, SIGINT or SIGTERM
// arrives, or one of the listeners fails. If deps is nil, default
// implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolOpener == nil {
		deps.PoolOpener = store.Open
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}
	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "starting patrolhub",
		"version", version,
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"auto_activate", cfg.Auth.AutoActivate,
		"hasher", cfg.Auth.Hasher)

	openOpts := cfg.Database.OpenOptions()
	openOpts.Logger = logger
	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, openOpts)
	if err != nil {
		return oops.With("operation", "open database").Wrap(err)
	}
	defer pool.Close()

	obsServer := observability.NewServer(cfg.Metrics.Addr, pool.Ping, logger)

	api, limiter, err := buildAPI(cfg, pool, obsServer, logger)
	if err != nil {
		return err
	}
	defer limiter.Close()

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           api,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Std(),
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiErrs := make(chan error, 1)
	go func() {
		defer close(apiErrs)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrs <- serveErr
		}
	}()
	go monitorServerErrors(ctx, cancel, apiErrs, "api", logger)
	logger.InfoContext(ctx, "api server started", "addr", listener.Addr().String())

	if cfg.Metrics.Addr != "" {
		obsErrs, err := obsServer.Start()
		if err != nil {
			_ = httpServer.Close() //nolint:errcheck // already failing
			return oops.Code("LISTEN_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrs, "observability", logger)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping observability server", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildAPI wires the repositories, limiter and auth service behind the HTTP
// handler. The caller closes the returned limiter.
func buildAPI(cfg config.Config, pool *pgxpool.Pool, obs *observability.Server, logger *slog.Logger) (http.Handler, *auth.MemoryLimiter, error) {
	limiterCfg := cfg.RateLimit.LimiterConfig()
	limiterCfg.Registerer = obs.Registry()
	limiter := auth.NewMemoryLimiter(limiterCfg)

	opts := append(cfg.Auth.ServiceOptions(), auth.WithLogger(logger))
	svc, err := auth.NewService(
		postgres.NewAccountRepository(pool),
		postgres.NewSessionRepository(pool),
		cfg.Auth.NewHasher(),
		limiter,
		opts...,
	)
	if err != nil {
		limiter.Close()
		return nil, nil, oops.With("operation", "create auth service").Wrap(err)
	}

	handler, err := newAPIHandler(cfg, svc, obs, logger)
	if err != nil {
		limiter.Close()
		return nil, nil, err
	}
	return handler, limiter, nil
}

func newAPIHandler(cfg config.Config, svc web.AuthService, obs *observability.Server, logger *slog.Logger) (http.Handler, error) {
	handler, err := web.New(svc, web.Options{
		TrustProxy:     cfg.HTTP.TrustProxy,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		DefaultOrigin:  cfg.HTTP.DefaultOrigin,
		CookieMaxAge:   cfg.Auth.SessionTTL.Std(),
		Logger:         logger,
		Registerer:     obs.Registry(),
	})
	if err != nil {
		return nil, oops.With("operation", "create api handler").Wrap(err)
	}
	return handler, nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
