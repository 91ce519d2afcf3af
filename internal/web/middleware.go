// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/patrolhub/patrolhub/pkg/errutil"
)

const tracerName = "github.com/patrolhub/patrolhub/internal/web"

var propagator = propagation.TraceContext{}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	//nolint:wrapcheck // passthrough
	return r.ResponseWriter.Write(b)
}

// observe continues any incoming W3C trace, opens a span for the route and
// records the request in the log and metrics.
func (h *Handler) observe(route string, next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "http "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		h.metrics.observe(route, r.Method, rec.status, elapsed)

		level := slog.LevelDebug
		switch {
		case rec.status >= 500:
			level = slog.LevelError
		case rec.status >= 400:
			level = slog.LevelInfo
		}
		h.logger.LogAttrs(ctx, level, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed),
			slog.String("client_addr", ClientAddr(r, h.trustProxy)))
	})
}

// recoverPanic turns a handler panic into a 500 response. It must be deferred.
func (h *Handler) recoverPanic(w http.ResponseWriter, r *http.Request) {
	v := recover()
	if v == nil {
		return
	}
	err := oops.
		With("method", r.Method).
		With("path", r.URL.Path).
		Errorf("handler panic: %v", v)
	errutil.LogErrorContext(r.Context(), h.logger, "panic serving request", err)
	h.metrics.recordError("panic")
	writeMessageError(w, http.StatusInternalServerError, internalErrorMessage)
}
