// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import "net/http"

const allowedHeaders = "Content-Type, Authorization, X-Authorization, X-Cookie"

// setHeaders writes the content type, CORS and security headers sent on
// every response.
func (h *Handler) setHeaders(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	hdr.Set("Content-Type", "application/json")
	hdr.Set("Access-Control-Allow-Origin", h.allowOrigin(r.Header.Get("Origin")))
	hdr.Set("Access-Control-Allow-Credentials", "true")
	hdr.Add("Vary", "Origin")

	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("X-Frame-Options", "DENY")
	hdr.Set("X-XSS-Protection", "1; mode=block")
	hdr.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	hdr.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

func (h *Handler) setPreflightHeaders(w http.ResponseWriter, methods string) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Methods", methods)
	hdr.Set("Access-Control-Allow-Headers", allowedHeaders)
	hdr.Set("Access-Control-Max-Age", "86400")
}

// allowOrigin echoes origin when it matches an allowed pattern. Credentialed
// CORS forbids "*", so anything else gets the fixed default origin.
func (h *Handler) allowOrigin(origin string) string {
	if origin != "" {
		for _, g := range h.origins {
			if g.Match(origin) {
				return origin
			}
		}
	}
	return h.defaultOrigin
}
