// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"time"

	"codeberg.org/presetfe/presetfe/core/backend"
)

// Results lists the visitor's finished test runs.
func (h *Handlers) Results(w http.ResponseWriter, r *http.Request) error {
	results, err := h.Backend.MyTestConfigResults(r.Context())
	if err != nil {
		return protected(r, err)
	}

	if results == nil {
		results = []backend.TestConfigResult{}
	}

	w.Header().Set("Cache-Control", "private, no-cache")

	return WriteJSON(w, http.StatusOK, results)
}

// CreateItemResult stores the answer to a single item of a running test.
func (h *Handlers) CreateItemResult(w http.ResponseWriter, r *http.Request) error {
	var result backend.NewItemConfigResult
	if err := readJSON(w, r, &result); err != nil {
		return err
	}

	if result.ItemConfigID <= 0 {
		return NewStatusError(http.StatusBadRequest, "item_config_id is required")
	}

	created, err := h.Backend.CreateItemConfigResult(r.Context(), result)
	if err != nil {
		return protected(r, err)
	}

	return WriteJSON(w, http.StatusCreated, created)
}

// CreateResult stores a finished test run referencing its item results.
func (h *Handlers) CreateResult(w http.ResponseWriter, r *http.Request) error {
	var result backend.NewTestConfigResult
	if err := readJSON(w, r, &result); err != nil {
		return err
	}

	if result.TestConfigID <= 0 {
		return NewStatusError(http.StatusBadRequest, "test_config_id is required")
	}

	if result.CorrectAnswers < 0 || result.WrongAnswers < 0 {
		return NewStatusError(http.StatusBadRequest, "answer counts cannot be negative")
	}

	if result.Time.IsZero() {
		result.Time = backend.Timestamp{Time: time.Now().UTC()}
	}

	created, err := h.Backend.CreateTestConfigResult(r.Context(), result)
	if err != nil {
		return protected(r, err)
	}

	return WriteJSON(w, http.StatusCreated, created)
}
