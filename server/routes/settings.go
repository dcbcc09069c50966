// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"codeberg.org/presetfe/presetfe/core/theme"
	"codeberg.org/presetfe/presetfe/server/utils"
)

type themeState struct {
	DarkMode bool `json:"darkMode"`
}

func ThemeSettings(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")

	return WriteJSON(w, http.StatusOK, themeState{DarkMode: theme.FromContext(r.Context()).IsDark()})
}

// ToggleTheme flips the dark-mode preference. A form carrying returnPath is
// answered with a redirect back (or to the referring page when returnPath is
// not local) instead of the new state.
func ToggleTheme(w http.ResponseWriter, r *http.Request) error {
	dark, err := theme.FromContext(r.Context()).Toggle()
	if err != nil {
		return err
	}

	if returnPath := utils.GetFormValue(r, "returnPath"); returnPath != "" {
		utils.RedirectBack(w, r, returnPath, "/")

		return nil
	}

	w.Header().Set("Cache-Control", "no-store")

	return WriteJSON(w, http.StatusOK, themeState{DarkMode: dark})
}
