// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

// Package web exposes the auth service over HTTP.
//
// Routes:
//
//	POST /api/auth       register, login, verify, update_profile, logout
//	GET  /api/accounts   list accounts (?status=all|pending|active)
//	POST /api/accounts   activate, deactivate, update
//	DELETE /api/accounts delete (?user_id=)
//
// Every response carries CORS and security headers. Errors are JSON objects
// with an "error" message.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gobwas/glob"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// AuthService is the part of auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Identity, string, error)
	Login(ctx context.Context, identifier, password, clientAddr string) (auth.Identity, string, error)
	Verify(ctx context.Context, token string) (auth.Identity, error)
	UpdateProfile(ctx context.Context, token string, upd auth.ProfileUpdate) (auth.Identity, error)
	Logout(ctx context.Context, token string) error

	ListAccounts(ctx context.Context, token string, status auth.StatusFilter) ([]auth.Identity, error)
	Activate(ctx context.Context, token string, id int64) (auth.Identity, error)
	Deactivate(ctx context.Context, token string, id int64) (auth.Identity, error)
	UpdateAccount(ctx context.Context, token string, id int64, upd auth.AccountUpdate) (auth.Identity, error)
	DeleteAccount(ctx context.Context, token string, id int64) error
}

var _ AuthService = (*auth.Service)(nil)

// Defaults for Options.
const (
	DefaultMaxBodyBytes = 1 << 20
	DefaultCookieMaxAge = 30 * 24 * time.Hour
)

// Options configures a Handler.
type Options struct {
	// TrustProxy takes the client address from X-Forwarded-For or X-Real-IP.
	TrustProxy bool
	// AllowedOrigins are glob patterns of origins echoed back in CORS headers.
	AllowedOrigins []string
	// DefaultOrigin is sent when the request origin matches no pattern.
	DefaultOrigin string
	// CookieMaxAge is the lifetime of the auth_token cookie.
	CookieMaxAge time.Duration
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
	Logger       *slog.Logger
	// Registerer receives the HTTP metrics. Nil disables them.
	Registerer prometheus.Registerer
}

// Handler serves the auth API.
type Handler struct {
	svc           AuthService
	trustProxy    bool
	origins       []glob.Glob
	defaultOrigin string
	cookieMaxAge  int
	maxBodyBytes  int64
	logger        *slog.Logger
	metrics       *metrics
	root          http.Handler
}

// New builds a Handler. It fails when an origin pattern does not compile.
func New(svc AuthService, opts Options) (*Handler, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = DefaultCookieMaxAge
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	origins := make([]glob.Glob, 0, len(opts.AllowedOrigins))
	for _, pattern := range opts.AllowedOrigins {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code("WEB_ORIGIN_INVALID").With("pattern", pattern).Wrap(err)
		}
		origins = append(origins, g)
	}

	h := &Handler{
		svc:           svc,
		trustProxy:    opts.TrustProxy,
		origins:       origins,
		defaultOrigin: opts.DefaultOrigin,
		cookieMaxAge:  int(opts.CookieMaxAge / time.Second),
		maxBodyBytes:  opts.MaxBodyBytes,
		logger:        opts.Logger,
	}
	if opts.Registerer != nil {
		m, err := newMetrics(opts.Registerer)
		if err != nil {
			return nil, err
		}
		h.metrics = m
	}

	mux := http.NewServeMux()
	mux.Handle("/api/auth", h.route("auth", "POST, OPTIONS", h.serveAuth))
	mux.Handle("/api/accounts", h.route("accounts", "GET, POST, DELETE, OPTIONS", h.serveAccounts))
	mux.Handle("/", h.route("unknown", "OPTIONS", func(w http.ResponseWriter, _ *http.Request) {
		writeMessageError(w, http.StatusNotFound, "Not found")
	}))
	h.root = mux
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// route wraps a route handler with headers, preflight handling, panic
// recovery, tracing, logging and metrics.
func (h *Handler) route(name, methods string, next http.HandlerFunc) http.Handler {
	return h.observe(name, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer h.recoverPanic(w, r)

		h.setHeaders(w, r)
		if r.Method == http.MethodOptions {
			h.setPreflightHeaders(w, methods)
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}))
}
