// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"codeberg.org/presetfe/presetfe/server/guard"
	"codeberg.org/presetfe/presetfe/server/middleware"
	"codeberg.org/presetfe/presetfe/server/routes"
)

// DefineRoutes sets up all the routes of the application.
//
// Routes under Protect require a session token; RequireToken is registered as
// their first navigation hook.
func (router *Router) DefineRoutes(h *routes.Handlers, inDevelopment bool) {
	router.BeforeNavigate(guard.RequireToken)

	router.HandleFunc("GET /healthz", middleware.CatchError(routes.Healthz))

	if router.metrics != nil {
		router.Handle("GET /metrics", router.metrics.Handler())
	}

	// Session routes
	router.HandleFunc("GET /login", middleware.CatchError(routes.LoginPage))
	router.HandleFunc("POST /login", middleware.CatchError(h.Login))
	router.HandleFunc("POST /logout", middleware.CatchError(h.Logout))
	router.HandleFunc("POST /register", middleware.CatchError(h.Register))
	router.HandleFunc("GET /users/exists/{username}", middleware.CatchError(h.UserExists))

	// Settings routes
	router.HandleFunc("GET /settings/theme", middleware.CatchError(routes.ThemeSettings))
	router.HandleFunc("POST /settings/theme", middleware.CatchError(routes.ToggleTheme))

	// Protected routes
	// /{$} matches only the root path
	router.Protect("GET /{$}", middleware.CatchError(h.Dashboard))
	router.Protect("GET /tests", middleware.CatchError(h.Tests))
	router.Protect("GET /tests/{id}", middleware.CatchError(h.Test))
	router.Protect("GET /items", middleware.CatchError(h.Items))
	router.Protect("GET /items/{id}", middleware.CatchError(h.Item))
	router.Protect("GET /results", middleware.CatchError(h.Results))
	router.Protect("POST /results", middleware.CatchError(h.CreateResult))
	router.Protect("POST /results/items", middleware.CatchError(h.CreateItemResult))

	if inDevelopment {
		registerDebugRoutes(router)
	}
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func registerDebugRoutes(router *Router) {
	if !flightRecorder.Enabled() {
		if err := flightRecorder.Start(); err != nil {
			panic(err)
		}
	}

	router.HandleFunc("GET /debug/pprof/", pprof.Index)
	router.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	router.HandleFunc("GET /debug/flight", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	})
}
