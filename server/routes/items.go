// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"codeberg.org/presetfe/presetfe/core/backend"
)

func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) error {
	items, err := h.Backend.ItemConfigs(r.Context())
	if err != nil {
		return protected(r, err)
	}

	if items == nil {
		items = []backend.ItemConfig{}
	}

	return WriteJSON(w, http.StatusOK, items)
}

func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	item, err := h.Backend.ItemConfig(r.Context(), id)
	if err != nil {
		return protected(r, err)
	}

	return WriteJSON(w, http.StatusOK, item)
}
