// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/server/utils"
)

func (h *Handlers) Tests(w http.ResponseWriter, r *http.Request) error {
	tests, err := h.Backend.TestConfigs(r.Context())
	if err != nil {
		return protected(r, err)
	}

	if tests == nil {
		tests = []backend.TestConfig{}
	}

	return WriteJSON(w, http.StatusOK, tests)
}

type testData struct {
	Test    backend.TestConfig         `json:"test"`
	Results []backend.TestConfigResult `json:"results"`
}

// Test answers with one test config and the visitor's earlier results for it.
func (h *Handlers) Test(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	timings := utils.NewTimings()

	var (
		data testData
		g    errgroup.Group
	)

	g.Go(func() error {
		t0 := time.Now()

		test, err := h.Backend.TestConfig(r.Context(), id)
		if err != nil {
			return fmt.Errorf("test config fetch failed: %w", err)
		}

		data.Test = test

		timings.Append("test-fetch", time.Since(t0), "Test config fetch")

		return nil
	})

	g.Go(func() error {
		t0 := time.Now()

		results, err := h.Backend.TestConfigResults(r.Context(), id)
		if err != nil {
			return fmt.Errorf("test results fetch failed: %w", err)
		}

		data.Results = results

		timings.Append("test-results-fetch", time.Since(t0), "Test results fetch")

		return nil
	})

	if err := g.Wait(); err != nil {
		return protected(r, err)
	}

	if data.Results == nil {
		data.Results = []backend.TestConfigResult{}
	}

	timings.WriteHeaders(w)

	return WriteJSON(w, http.StatusOK, data)
}
