// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", ready, nil)
	_, err := s.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx) //nolint:errcheck // test cleanup
	})
	return s
}

func get(t *testing.T, s *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + s.Addr() + path) //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	s := startServer(t, nil)

	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "patrolhub_test_hits_total",
		Help: "Test counter.",
	})
	s.Registry().MustRegister(hits)
	hits.Add(3)

	code, body := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, "patrolhub_test_hits_total 3")
}

func TestServer_Probes(t *testing.T) {
	tests := []struct {
		name  string
		ready ReadinessChecker
		path  string
		code  int
		body  string
	}{
		{"liveness", nil, "/healthz/liveness", http.StatusOK, "ok\n"},
		{"readiness without checker", nil, "/healthz/readiness", http.StatusOK, "ok\n"},
		{"ready", func(context.Context) error { return nil }, "/healthz/readiness", http.StatusOK, "ok\n"},
		{"not ready", func(context.Context) error { return errors.New("database down") },
			"/healthz/readiness", http.StatusServiceUnavailable, "not ready\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer("", tt.ready, nil).Handler().ServeHTTP(rec,
				httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestServer_ReadinessHasDeadline(t *testing.T) {
	var hadDeadline bool
	rec := httptest.NewRecorder()
	NewServer("", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))
	assert.True(t, hadDeadline)
}

func TestServer_Lifecycle(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil, nil)
	assert.Empty(t, s.Addr())

	errCh, err := s.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, s.Addr())

	_, err = s.Start()
	require.Error(t, err, "second start must fail")

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "stop is idempotent")

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "unexpected serve error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after shutdown")
	}
}

func TestServer_StartOnBusyAddress(t *testing.T) {
	first := startServer(t, nil)

	second := NewServer(first.Addr(), nil, nil)
	_, err := second.Start()
	require.Error(t, err)

	// a failed start leaves the server startable
	second.addr = "127.0.0.1:0"
	_, err = second.Start()
	require.NoError(t, err)
	require.NoError(t, second.Stop(context.Background()))
}
