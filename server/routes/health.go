// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"codeberg.org/presetfe/presetfe/config"
)

func Healthz(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")

	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"version":  config.BuildVersion,
		"instance": config.Global.Instance.InstanceID,
	})
}
