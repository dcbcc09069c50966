// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"

	"codeberg.org/presetfe/presetfe/core/storage"
	"codeberg.org/presetfe/presetfe/core/theme"
)

// WithTheme loads the visitor's dark-mode preference from the darkMode cookie
// and attaches a theme.Store for the request. Toggling it sets the cookie on
// the response.
func WithTheme(w http.ResponseWriter, r *http.Request, next http.Handler) {
	cookies := storage.NewCookies(w, r)

	st := theme.New(cookies)
	st.Initialize()

	next.ServeHTTP(w, r.WithContext(theme.WithStore(r.Context(), st)))

	cookies.Seal()
}
