// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/theme"
	"codeberg.org/presetfe/presetfe/server/utils"
)

type dashboardData struct {
	User     backend.User         `json:"user"`
	Tests    []backend.TestConfig `json:"tests"`
	DarkMode bool                 `json:"darkMode"`
}

// Dashboard answers with the current user and the available tests, fetched concurrently.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) error {
	timings := utils.NewTimings()

	var (
		data dashboardData
		g    errgroup.Group
	)

	g.Go(func() error {
		t0 := time.Now()

		user, err := h.Backend.Me(r.Context())
		if err != nil {
			return fmt.Errorf("user fetch failed: %w", err)
		}

		data.User = user

		timings.Append("dashboard-user-fetch", time.Since(t0), "Current user fetch")

		return nil
	})

	g.Go(func() error {
		t0 := time.Now()

		tests, err := h.Backend.TestConfigs(r.Context())
		if err != nil {
			return fmt.Errorf("test configs fetch failed: %w", err)
		}

		data.Tests = tests

		timings.Append("dashboard-tests-fetch", time.Since(t0), "Test configs fetch")

		return nil
	})

	if err := g.Wait(); err != nil {
		return protected(r, err)
	}

	if data.Tests == nil {
		data.Tests = []backend.TestConfig{}
	}

	data.DarkMode = theme.FromContext(r.Context()).IsDark()

	timings.WriteHeaders(w)
	w.Header().Set("Cache-Control", "private, no-cache")

	return WriteJSON(w, http.StatusOK, data)
}
