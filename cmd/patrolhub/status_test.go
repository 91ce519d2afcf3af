// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhub/patrolhub/internal/observability"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

func startObservability(t *testing.T, ready observability.ReadinessChecker) string {
	t.Helper()
	srv := observability.NewServer("127.0.0.1:0", ready, nil)
	_, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv.Addr()
}

func TestStatus_Healthy(t *testing.T) {
	addr := startObservability(t, func(context.Context) error { return nil })

	out, err := execute(t, "status", "--metrics-addr", addr)

	require.NoError(t, err)
	assert.Contains(t, out, "PROBE")
	assert.Regexp(t, `liveness\s+ok`, out)
	assert.Regexp(t, `readiness\s+ok`, out)
}

func TestStatus_NotReady(t *testing.T) {
	addr := startObservability(t, func(context.Context) error { return errors.New("database down") })

	out, err := execute(t, "status", "--json", "--metrics-addr", addr)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOT_HEALTHY")
	assert.Contains(t, out, `"probe": "readiness"`)
	assert.Contains(t, out, `"ok": false`)
	assert.Contains(t, out, `"status": 503`)
}

func TestStatus_Unreachable(t *testing.T) {
	out, err := execute(t, "status", "--metrics-addr", "127.0.0.1:1")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOT_HEALTHY")
	assert.Contains(t, out, "failed to connect")
}

func TestStatus_MetricsDisabled(t *testing.T) {
	_, err := execute(t, "status", "--metrics-addr=")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":9100", "http://127.0.0.1:9100"},
		{"0.0.0.0:9100", "http://127.0.0.1:9100"},
		{"127.0.0.1:9100", "http://127.0.0.1:9100"},
		{"metrics.internal:9100", "http://metrics.internal:9100"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, baseURL(tt.addr))
		})
	}
}
