// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/core/storage"
	"codeberg.org/presetfe/presetfe/core/untrusted"
	"codeberg.org/presetfe/presetfe/server/guard"
	"codeberg.org/presetfe/presetfe/server/metrics"
	"codeberg.org/presetfe/presetfe/server/middleware"
	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/utils"
)

// Router wraps http.ServeMux and provides middleware chaining functionality.
type Router struct {
	*http.ServeMux

	middlewares []middleware.Middleware
	hooks       []guard.BeforeNavigate

	// nil when metrics are disabled
	metrics *metrics.Metrics
}

// NewRouter creates a new Router instance. m may be nil.
func NewRouter(m *metrics.Metrics) *Router {
	return &Router{
		ServeMux: http.NewServeMux(),
		metrics:  m,
	}
}

// Use adds a middleware to the router's chain.
func (router *Router) Use(middleware middleware.Middleware) {
	router.middlewares = append(router.middlewares, middleware)
}

// BeforeNavigate registers a hook that runs, in registration order, before
// every route registered with Protect.
func (router *Router) BeforeNavigate(hook guard.BeforeNavigate) {
	router.hooks = append(router.hooks, hook)
}

// Protect registers handler for pattern behind the navigation hooks.
func (router *Router) Protect(pattern string, handler http.Handler) {
	router.Handle(pattern, router.guarded(handler))
}

// guarded runs the hooks and either redirects or hands over to next.
func (router *Router) guarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nav := guard.Navigation{
			To:      guard.Destination{Path: r.URL.Path, Query: r.URL.Query()},
			From:    refererDestination(r),
			Storage: storage.NewCookies(w, r),
		}

		target, redirect := guard.Chain(router.hooks...)(r.Context(), nav).Redirect()

		router.metrics.ObserveGuardDecision(redirect)

		if !redirect {
			next.ServeHTTP(w, r)

			return
		}

		if target == guard.LoginPath && r.Method == http.MethodGet {
			untrusted.SetCookie(w, r, cookie.ReturnPathCookie, r.URL.RequestURI())
		}

		rc := request_context.FromRequest(r)
		rc.StatusCode = utils.RedirectTo(w, r, target)

		log.Debug().
			Str("request_id", rc.RequestID).
			Str("from", nav.From.Path).
			Str("to", nav.To.Path).
			Str("redirect", target).
			Msg("Navigation redirected")
	})
}

// refererDestination returns where the visitor came from, when that was this site.
func refererDestination(r *http.Request) guard.Destination {
	ref := utils.SameOriginReferer(r)
	if ref == "" {
		return guard.Destination{}
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return guard.Destination{}
	}

	return guard.Destination{Path: parsed.Path, Query: parsed.Query()}
}

// runs router.middlewares[i] and every thereafter
func (router *Router) serve(i int, w http.ResponseWriter, r *http.Request) {
	if i < len(router.middlewares) {
		router.middlewares[i](w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			router.serve(i+1, w, r)
		}))
	} else {
		router.ServeMux.ServeHTTP(w, r)
	}
}

// runs all middleware
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.serve(0, w, r)
}
