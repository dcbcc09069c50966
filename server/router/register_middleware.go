// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"codeberg.org/presetfe/presetfe/config"
	"codeberg.org/presetfe/presetfe/core/authenticated"
	"codeberg.org/presetfe/presetfe/server/middleware"
	"codeberg.org/presetfe/presetfe/server/middleware/limiter"
	"codeberg.org/presetfe/presetfe/server/middleware/set_request_context"
)

// RegisterMiddleware sets up the chain shared by every route. signer is only
// used when CSRF protection is enabled.
func (router *Router) RegisterMiddleware(cfg *config.ServerConfig, signer *authenticated.Signer) {
	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)
	router.Use(middleware.NormalizeURL)                // handle trailing slashes
	router.Use(set_request_context.WithRequestContext) // needed for everything else

	// counts every answer, including those the CSRF check or the limiter send
	if router.metrics != nil {
		router.Use(router.metrics.Middleware)
	}

	router.Use(middleware.WithTraceContext)
	router.Use(middleware.SetResponseHeaders) // all responses need this
	router.Use(middleware.WithSessionToken)
	router.Use(middleware.WithTheme)

	if cfg.Csrf.Enabled {
		router.Use(middleware.CSRF(signer, cfg.Csrf.TTL))
	}

	if cfg.Limiter.Enabled {
		router.Use(limiter.New(cfg.Limiter.Rate, cfg.Limiter.Burst, cfg.Limiter.PassIPs).Middleware)
	}
}
