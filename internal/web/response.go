// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

const internalErrorMessage = "Internal server error"

type sessionResponse struct {
	Token string        `json:"token,omitempty"`
	User  auth.Identity `json:"user"`
}

type accountsResponse struct {
	Users []auth.Identity `json:"users"`
	Total int             `json:"total"`
}

type messageResponse struct {
	Message string         `json:"message"`
	User    *auth.Identity `json:"user,omitempty"`
}

type errorResponse struct {
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RemainingMinutes  *int   `json:"remaining_minutes,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson // client may have gone
	json.NewEncoder(w).Encode(v)
}

func writeMessageError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation, auth.KindConflict:
		return http.StatusBadRequest
	case auth.KindAuthRequired, auth.KindInvalidToken, auth.KindInvalidCredential:
		return http.StatusUnauthorized
	case auth.KindInactiveAccount, auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindRateLimited, auth.KindCooldown:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status for err's kind. Internal errors are
// logged and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadJSON) {
		h.metrics.recordError("bad_request")
		writeMessageError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	kind := auth.KindOf(err)
	h.metrics.recordError(kind.String())
	if kind == auth.KindInternal {
		errutil.LogErrorContext(r.Context(), h.logger, "request failed", err,
			"method", r.Method,
			"path", r.URL.Path)
		writeMessageError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	body := errorResponse{Error: err.Error()}
	if n, ok := auth.ContextInt(err, auth.ContextRemainingAttempts); ok {
		body.RemainingAttempts = &n
	}
	if n, ok := auth.ContextInt(err, auth.ContextRemainingMinutes); ok {
		body.RemainingMinutes = &n
	}
	writeJSON(w, statusFor(kind), body)
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
