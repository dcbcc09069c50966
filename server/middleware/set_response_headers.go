// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"strings"
	"sync/atomic"

	"codeberg.org/presetfe/presetfe/config"
)

var (
	// baseHeaders defines the default headers to be set in responses.
	//
	// Presetfe-Version and Presetfe-Revision are added in SetResponseHeaders.
	baseHeaders = http.Header{
		"Referrer-Policy":         {"same-origin"},
		"X-Frame-Options":         {"DENY"},
		"X-Content-Type-Options":  {"nosniff"},
		"Permissions-Policy":      {strings.Join(defaultPermissionsPolicy, ", ")},
		"Content-Security-Policy": {"default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'"},
	}

	defaultPermissionsPolicy = []string{
		"camera=()",
		"display-capture=()",
		"geolocation=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}
)

// SetResponseHeaders adds default headers to HTTP responses.
//
// Handlers may override Cache-Control; everything else is fixed.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	if config.Global.Development.InDevelopment {
		invalidateCacheInDevelopment(headers)
	}

	headers.Set("Cache-Control", cacheControl(r.URL.Path))
	headers.Set("Presetfe-Version", config.BuildVersion)
	headers.Set("Presetfe-Revision", config.Global.Build.Revision())

	next.ServeHTTP(w, r)
}

var firstDevResponse atomic.Bool

// clear the browser cache once per process in development
func invalidateCacheInDevelopment(headers http.Header) {
	if firstDevResponse.CompareAndSwap(false, true) {
		headers.Set("Clear-Site-Data", `"cache"`)
	}
}

// cacheControl returns the default Cache-Control value for path.
func cacheControl(path string) string {
	switch path {
	case "/healthz", "/metrics", "/login", "/logout":
		return "no-store"
	default:
		// responses depend on the session cookie
		return "private, no-cache"
	}
}
