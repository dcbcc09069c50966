// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package requests is the single way this application talks to the backend.

A Client is bound to one base address at construction. Every call site shares
the same interceptors, transport and optional response cache, and receives the
backend's answer untouched: no retries, no timeouts beyond the caller's
context, no translation of HTTP error statuses.
*/
package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/presetfe/presetfe/core/audit"
	"codeberg.org/presetfe/presetfe/core/idgen"
	"codeberg.org/presetfe/presetfe/core/requests/lrucache"
	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/utils"
)

var (
	errInvalidBaseURL = errors.New("base URL must be absolute, e.g. http://localhost:8000")
	errEncodeBody     = errors.New("failed to encode request body")
)

// Observer is told about every completed backend exchange.
type Observer interface {
	ObserveBackendRequest(method string, statusCode int, cached bool, took time.Duration)
}

// Client issues requests against a fixed backend base address.
//
// A Client is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	interceptors []Interceptor
	cache        *lrucache.LRUCache
	cacheTTL     time.Duration
	observer     Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Defaults to utils.HTTPClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInterceptors appends interceptors after EnsureHeaders.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// WithCache enables the keyed response cache. A nil cache leaves it disabled.
func WithCache(cache *lrucache.LRUCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithObserver reports every exchange to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New returns a Client bound to baseURL.
//
// baseURL is used verbatim: request paths are appended to it by plain
// concatenation, so it should not end in a slash.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidBaseURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: got %q", errInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:      baseURL,
		httpClient:   utils.HTTPClient,
		interceptors: []Interceptor{EnsureHeaders},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the address a request for path goes to.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Fetch sends one request to the backend.
//
// The returned error is either an interceptor's error, a body encoding
// failure, or the transport error exactly as http.Client.Do returned it. A
// response with any status code is returned without error.
func (c *Client) Fetch(ctx context.Context, target Target, opts FetchOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	address := c.URL(target.Resolve())
	if len(opts.Query) > 0 {
		separator := "?"
		if strings.Contains(address, "?") {
			separator = "&"
		}

		address += separator + opts.Query.Encode()
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, address, body)
	if err != nil {
		return nil, err
	}

	// nil unless the caller passed headers or a body; EnsureHeaders fills it in
	req.Header = opts.Headers.Clone()

	if contentType != "" {
		if req.Header == nil {
			req.Header = make(http.Header)
		}

		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", contentType)
		}
	}

	for _, intercept := range c.interceptors {
		if err := intercept(ctx, req); err != nil {
			return nil, err
		}
	}

	cacheKey := ""
	if c.cacheable(method, opts) {
		cacheKey = makeCacheKey(opts.Key, req)

		if resp, ok := c.lookup(ctx, cacheKey, req); ok {
			return resp, nil
		}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" && resp.OK() {
		c.store(ctx, cacheKey, resp)
	}

	return resp, nil
}

// send dispatches req and reads the whole body.
func (c *Client) send(ctx context.Context, req *http.Request) (_ *Response, err error) {
	span := audit.Span{
		Destination: audit.ToBackend,
		RequestID:   request_context.FromContext(ctx).RequestID + "-" + idgen.Make(),
		Method:      req.Method,
		URL:         req.URL.String(),
	}

	_ = span.Begin(ctx)

	defer func() {
		span.End()
		span.Error = err
		span.Log()
		c.observe(span)
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	span.StatusCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.Body = body

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) observe(span audit.Span) {
	if c.observer == nil {
		return
	}

	c.observer.ObserveBackendRequest(span.Method, span.StatusCode, span.Cached, span.Duration())
}

// encodeBody prefers Form over Body.
func encodeBody(opts FetchOptions) (io.Reader, string, error) {
	switch {
	case opts.Form != nil:
		return strings.NewReader(opts.Form.Encode()), "application/x-www-form-urlencoded", nil
	case opts.Body != nil:
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", errEncodeBody, err)
		}

		return bytes.NewReader(data), "application/json", nil
	default:
		return nil, "", nil
	}
}
