// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

var traceContext = propagation.TraceContext{}

// WithTraceContext adopts the caller's W3C trace context, if any, so that it
// is logged and forwarded to the backend.
func WithTraceContext(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if r.Header.Get("Traceparent") == "" {
		next.ServeHTTP(w, r)

		return
	}

	ctx := traceContext.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	next.ServeHTTP(w, r.WithContext(ctx))
}
