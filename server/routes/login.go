// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/core/untrusted"
	"codeberg.org/presetfe/presetfe/server/guard"
	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/utils"
)

// LoginForm describes the fields POST /login expects.
type LoginForm struct {
	Action     string   `json:"action"`
	Method     string   `json:"method"`
	Fields     []string `json:"fields"`
	ReturnPath string   `json:"returnPath,omitempty"`
	CSRFToken  string   `json:"csrf,omitempty"`
	LoggedIn   bool     `json:"loggedIn"`
}

func LoginPage(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")

	returnPath := utils.SanitizeReturnPath(utils.GetQueryParam(r, "returnPath"))
	if returnPath == "" {
		returnPath = untrusted.GetReturnPath(r)
	}

	return WriteJSON(w, http.StatusOK, LoginForm{
		Action:     guard.LoginPath,
		Method:     http.MethodPost,
		Fields:     []string{"username", "password", "returnPath"},
		ReturnPath: returnPath,
		CSRFToken:  request_context.FromRequest(r).CSRFToken,
		LoggedIn:   untrusted.GetUserToken(r) != "",
	})
}

// Login exchanges the submitted credentials for a session token.
//
// The backend identifies users by email; the username field carries it.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	username := strings.TrimSpace(utils.GetFormValue(r, "username"))
	password := utils.GetFormValue(r, "password")

	if username == "" || password == "" {
		return NewStatusError(http.StatusBadRequest, "username and password are required")
	}

	token, err := h.Backend.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return NewStatusError(http.StatusUnauthorized, "incorrect email or password")
		}

		return err
	}

	if token.AccessToken == "" {
		return NewStatusError(http.StatusBadGateway, "backend issued an empty token")
	}

	untrusted.SetCookie(w, r, cookie.TokenCookie, token.AccessToken)

	returnPath := utils.SanitizeReturnPath(utils.GetFormValue(r, "returnPath"))
	if returnPath == "" {
		returnPath = untrusted.GetReturnPath(r)
	}

	if returnPath == "" || returnPath == guard.LoginPath {
		returnPath = "/"
	}

	untrusted.ClearCookie(w, r, cookie.ReturnPathCookie)

	http.Redirect(w, r, returnPath, http.StatusSeeOther)

	return nil
}

// Logout revokes the session at the backend and drops the token cookie.
//
// The cookie is removed even when the backend call fails.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) error {
	if untrusted.GetUserToken(r) != "" {
		if err := h.Backend.Logout(r.Context()); err != nil {
			log.Warn().
				Err(err).
				Str("request_id", request_context.FromRequest(r).RequestID).
				Msg("Backend logout failed")
		}
	}

	untrusted.ClearCookie(w, r, cookie.TokenCookie)

	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)

	return nil
}
