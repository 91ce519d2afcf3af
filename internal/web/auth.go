// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import (
	"net/http"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// authRequest is the union of all /api/auth request bodies.
type authRequest struct {
	Action string `json:"action"`

	// register and login
	Email    string `json:"email"`
	Password string `json:"password"`
	// Identifier is an alias for Email at login: an email or a short id.
	Identifier string `json:"identifier"`

	FullName    *string `json:"full_name"`
	Rank        *string `json:"rank"`
	BadgeNumber *string `json:"badge_number"`
	Department  *string `json:"department"`

	// update_profile
	NewPassword     *string `json:"new_password"`
	CurrentPassword string  `json:"current_password"`
}

func (h *Handler) serveAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMessageError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req authRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch req.Action {
	case "register":
		h.register(w, r, req)
	case "login":
		h.login(w, r, req)
	case "verify":
		h.verify(w, r)
	case "update_profile":
		h.updateProfile(w, r, req)
	case "logout":
		h.logout(w, r)
	default:
		writeMessageError(w, http.StatusBadRequest, "Invalid action")
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req authRequest) {
	in := auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Rank:        req.Rank,
		BadgeNumber: req.BadgeNumber,
		Department:  req.Department,
	}
	if req.FullName != nil {
		in.FullName = *req.FullName
	}

	identity, token, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: identity})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, req authRequest) {
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}

	identity, token, err := h.svc.Login(r.Context(), identifier, req.Password, ClientAddr(r, h.trustProxy))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: identity})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	identity, err := h.svc.Verify(r.Context(), TokenFromRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: identity})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, req authRequest) {
	identity, err := h.svc.UpdateProfile(r.Context(), TokenFromRequest(r), auth.ProfileUpdate{
		FullName:        req.FullName,
		NewPassword:     req.NewPassword,
		CurrentPassword: req.CurrentPassword,
		Rank:            req.Rank,
		BadgeNumber:     req.BadgeNumber,
		Department:      req.Department,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: identity})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), TokenFromRequest(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearTokenCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}
