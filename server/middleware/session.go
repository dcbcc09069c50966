// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/untrusted"
)

// WithSessionToken makes backend calls made for this request authenticate
// with the token cookie.
func WithSessionToken(w http.ResponseWriter, r *http.Request, next http.Handler) {
	token := untrusted.GetUserToken(r)
	if token == "" {
		next.ServeHTTP(w, r)

		return
	}

	next.ServeHTTP(w, r.WithContext(backend.WithToken(r.Context(), token)))
}
