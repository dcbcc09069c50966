// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

var traceContext = propagation.TraceContext{}

// EnsureHeaders makes sure the request has a header map. Every Client runs it first.
func EnsureHeaders(_ context.Context, req *http.Request) error {
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	return nil
}

// BearerToken sets Authorization from tokenFunc. An empty token leaves the
// request unauthenticated, and an Authorization header set by the caller wins.
func BearerToken(tokenFunc func(ctx context.Context) string) Interceptor {
	return func(ctx context.Context, req *http.Request) error {
		if req.Header.Get("Authorization") != "" {
			return nil
		}

		if token := tokenFunc(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		return nil
	}
}

// Accept sets the Accept header unless the caller already did.
func Accept(mediaType string) Interceptor {
	return func(_ context.Context, req *http.Request) error {
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", mediaType)
		}

		return nil
	}
}

// TraceContext forwards the W3C trace context (traceparent, tracestate) found
// in ctx, so backend logs can be correlated with the incoming request.
func TraceContext(ctx context.Context, req *http.Request) error {
	traceContext.Inject(ctx, propagation.HeaderCarrier(req.Header))

	return nil
}
