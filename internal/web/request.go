// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// TokenCookie is the cookie that carries the session token.
const TokenCookie = "auth_token"

// errBadJSON is answered with 400 "Invalid JSON body".
var errBadJSON = errors.New("invalid JSON body")

// TokenFromRequest returns the bearer token from Authorization or
// X-Authorization, falling back to the auth_token pair in Cookie or X-Cookie.
// It returns "" when no token is present.
func TokenFromRequest(r *http.Request) string {
	for _, name := range []string{"Authorization", "X-Authorization"} {
		if t := stripBearer(r.Header.Get(name)); t != "" {
			return t
		}
	}
	for _, name := range []string{"Cookie", "X-Cookie"} {
		for _, v := range r.Header.Values(name) {
			if t := cookieValue(v, TokenCookie); t != "" {
				return t
			}
		}
	}
	return ""
}

// stripBearer returns the token of a Bearer credential or a bare token. Other
// schemes yield "" so the cookie fallback still applies.
func stripBearer(v string) string {
	v = strings.TrimSpace(v)
	scheme, rest, ok := strings.Cut(v, " ")
	if !ok {
		if strings.EqualFold(v, "bearer") {
			return ""
		}
		return v
	}
	if !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// cookieValue scans a ;-separated cookie header for name.
func cookieValue(header, name string) string {
	for pair := range strings.SplitSeq(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k == name {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ClientAddr returns the address used for login rate limiting. Proxy headers
// are honoured only when trustProxy is set: X-Real-IP first, then the
// rightmost X-Forwarded-For hop, which is the one the trusted proxy appended.
func ClientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		if hop := lastHop(r.Header.Values("X-Forwarded-For")); hop != "" {
			return hop
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func lastHop(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		hops := strings.Split(values[i], ",")
		for j := len(hops) - 1; j >= 0; j-- {
			if hop := strings.TrimSpace(hops[j]); hop != "" {
				return hop
			}
		}
	}
	return ""
}

// decodeBody reads a JSON object into v. An empty body decodes as {}.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return oops.With("operation", "decode body").Wrap(errors.Join(errBadJSON, err))
	}
	return nil
}

// idParam parses an account id from a JSON number or string.
func idParam(raw json.Number) (int64, error) {
	if raw == "" {
		return 0, oops.Code(auth.CodeValidation).Errorf("user_id is required")
	}
	id, err := raw.Int64()
	if err != nil || id <= 0 {
		return 0, oops.Code(auth.CodeValidation).Errorf("user_id must be a positive integer")
	}
	return id, nil
}
