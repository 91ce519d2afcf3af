// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"none", nil, ""},
		{"bearer", map[string]string{"Authorization": "Bearer abc"}, "abc"},
		{"lowercase scheme", map[string]string{"authorization": "bearer abc"}, "abc"},
		{"raw token", map[string]string{"Authorization": "abc"}, "abc"},
		{"x-authorization", map[string]string{"X-Authorization": "Bearer xyz"}, "xyz"},
		{"authorization wins", map[string]string{"Authorization": "Bearer a", "X-Authorization": "Bearer b"}, "a"},
		{"cookie", map[string]string{"Cookie": "a=1; auth_token=tok; b=2"}, "tok"},
		{"x-cookie", map[string]string{"X-Cookie": "auth_token=tok2"}, "tok2"},
		{"header beats cookie", map[string]string{"Authorization": "Bearer h", "Cookie": "auth_token=c"}, "h"},
		{"other cookies only", map[string]string{"Cookie": "session=1; auth_token_old=2"}, ""},
		{"empty bearer", map[string]string{"Authorization": "Bearer ", "Cookie": "auth_token=c"}, "c"},
		{"basic scheme ignored", map[string]string{"Authorization": "Basic abc"}, ""},
		{"basic scheme falls back to cookie", map[string]string{"Authorization": "Basic dXNlcjpwdw==", "Cookie": "auth_token=c"}, "c"},
		{"x-authorization after foreign scheme", map[string]string{"Authorization": "Digest x", "X-Authorization": "Bearer b"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/auth", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, TokenFromRequest(r))
		})
	}
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/auth", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.Header.Set("X-Real-IP", "203.0.113.77")

	assert.Equal(t, "10.0.0.5", ClientAddr(r, false), "proxy headers ignored when untrusted")
	assert.Equal(t, "203.0.113.77", ClientAddr(r, true))

	r.Header.Del("X-Real-IP")
	assert.Equal(t, "10.0.0.1", ClientAddr(r, true))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.5", ClientAddr(r, true))

	r.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", ClientAddr(r, false))
}

func TestClientAddr_IgnoresClientSuppliedHops(t *testing.T) {
	tests := []struct {
		name string
		xff  []string
		want string
	}{
		{"forged leading hop", []string{"1.2.3.4, 198.51.100.7"}, "198.51.100.7"},
		{"rotating forged hops", []string{"9.9.9.9, 8.8.8.8, 198.51.100.7"}, "198.51.100.7"},
		{"trailing comma", []string{"1.2.3.4, 198.51.100.7, "}, "198.51.100.7"},
		{"repeated header", []string{"1.2.3.4", "198.51.100.7"}, "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/auth", nil)
			r.RemoteAddr = "10.0.0.5:4321"
			for _, v := range tt.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, ClientAddr(r, true))
		})
	}
}

func TestIDParam(t *testing.T) {
	id, err := idParam(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []json.Number{"", "0", "-3", "1.5", "abc"} {
		_, err := idParam(bad)
		require.Error(t, err, string(bad))
	}
}

func TestAllowOrigin(t *testing.T) {
	h, err := New(stubService{}, Options{
		AllowedOrigins: []string{"https://*.patrolhub.dev"},
		DefaultOrigin:  "https://app.patrolhub.dev",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://ops.patrolhub.dev", h.allowOrigin("https://ops.patrolhub.dev"))
	assert.Equal(t, "https://app.patrolhub.dev", h.allowOrigin("https://patrolhub.dev.evil.io"))
	assert.Equal(t, "https://app.patrolhub.dev", h.allowOrigin(""))
}

type stubService struct{ AuthService }
