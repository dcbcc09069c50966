// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"net/mail"
	"strings"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/server/utils"
)

type existsAnswer struct {
	Exists bool `json:"exists"`
}

// Register creates an account from the submitted form. It does not log the
// visitor in; the client follows up with POST /login.
//
// Duplicate usernames and emails are reported by the backend as 400.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) error {
	registration := backend.Registration{
		Username: strings.TrimSpace(utils.GetFormValue(r, "username")),
		Email:    strings.TrimSpace(utils.GetFormValue(r, "email")),
		Password: utils.GetFormValue(r, "password"),
	}

	if registration.Username == "" || registration.Email == "" || registration.Password == "" {
		return NewStatusError(http.StatusBadRequest, "username, email and password are required")
	}

	if _, err := mail.ParseAddress(registration.Email); err != nil {
		return NewStatusError(http.StatusBadRequest, "email is not a valid address")
	}

	user, err := h.Backend.Register(r.Context(), registration)
	if err != nil {
		return err
	}

	w.Header().Set("Cache-Control", "no-store")

	return WriteJSON(w, http.StatusCreated, user)
}

// UserExists answers whether a username is already taken.
func (h *Handlers) UserExists(w http.ResponseWriter, r *http.Request) error {
	username := strings.TrimSpace(utils.GetPathVar(r, "username"))
	if username == "" {
		return NewStatusError(http.StatusBadRequest, "username is required")
	}

	exists, err := h.Backend.Exists(r.Context(), username)
	if err != nil {
		return err
	}

	return WriteJSON(w, http.StatusOK, existsAnswer{Exists: exists})
}
