// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/patrolhub/patrolhub/internal/auth"
)

type accountRequest struct {
	Action   string      `json:"action"`
	UserID   json.Number `json:"user_id"`
	FullName *string     `json:"full_name"`
	Role     *string     `json:"role"`
}

func (h *Handler) serveAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAccounts(w, r)
	case http.MethodPost:
		h.changeAccount(w, r)
	case http.MethodDelete:
		h.deleteAccount(w, r)
	default:
		writeMessageError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	status, err := auth.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	users, err := h.svc.ListAccounts(r.Context(), TokenFromRequest(r), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []auth.Identity{}
	}
	writeJSON(w, http.StatusOK, accountsResponse{Users: users, Total: len(users)})
}

func (h *Handler) changeAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, token := r.Context(), TokenFromRequest(r)
	var (
		identity auth.Identity
		message  string
	)
	switch req.Action {
	case "activate":
		identity, err = h.svc.Activate(ctx, token, id)
		message = "Account activated"
	case "deactivate":
		identity, err = h.svc.Deactivate(ctx, token, id)
		message = "Account deactivated"
	case "update":
		identity, err = h.svc.UpdateAccount(ctx, token, id, auth.AccountUpdate{
			FullName: req.FullName,
			Role:     req.Role,
		})
		message = "Account updated"
	default:
		writeMessageError(w, http.StatusBadRequest, "Invalid action")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: message, User: &identity})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(json.Number(r.URL.Query().Get("user_id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), TokenFromRequest(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Account deleted"})
}
