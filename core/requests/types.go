// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Interceptor inspects or modifies an outgoing request before it is sent.
//
// Interceptors run in registration order. A returned error aborts the request
// and is handed to the caller unchanged.
type Interceptor func(ctx context.Context, req *http.Request) error

// Target names the backend path of a request.
//
// A Target is resolved when Fetch is called, so a PathFunc may return a
// different path for each request.
type Target struct {
	path     string
	resolver func() string
}

// Path is a Target with a fixed path.
func Path(p string) Target {
	return Target{path: p}
}

// PathFunc is a Target whose path is computed at request time.
func PathFunc(fn func() string) Target {
	return Target{resolver: fn}
}

// Resolve returns the path the target points at right now.
func (t Target) Resolve() string {
	if t.resolver != nil {
		return t.resolver()
	}

	return t.path
}

// FetchOptions are passed through to the request unchanged.
type FetchOptions struct {
	// Method defaults to GET.
	Method string

	// Query is appended to the address.
	Query url.Values

	// Key identifies the call for the response cache. GET requests without a
	// Key are never cached.
	Key string

	// Body is encoded as JSON. Ignored when Form is set.
	Body any

	// Form is sent as application/x-www-form-urlencoded.
	Form url.Values

	// Headers are copied onto the request before interceptors run.
	Headers http.Header
}

// Response is the backend's answer as received.
//
// Non-2xx statuses are not errors at this layer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Cached reports whether the response came from the cache.
	Cached bool
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}
