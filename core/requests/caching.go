// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"codeberg.org/presetfe/presetfe/core/audit"
	"codeberg.org/presetfe/presetfe/server/request_context"
)

// cacheKeySeparator splits the caller's key from the request fingerprint.
const cacheKeySeparator = "#"

// cachedResponse is what the LRU cache holds, gob encoded.
type cachedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (c *Client) cacheable(method string, opts FetchOptions) bool {
	if c.cache == nil || method != http.MethodGet || opts.Key == "" {
		return false
	}

	return !strings.Contains(strings.ToLower(opts.Headers.Get("Cache-Control")), "no-cache")
}

// makeCacheKey binds a cached response to the caller's key, the full address
// and the credentials the request carries.
//
// Hashing the whole Authorization header keeps one session's responses out
// of another session's reach without having to validate the token.
func makeCacheKey(key string, req *http.Request) string {
	// New256 only fails for oversized keys; nil is fine.
	hasher, _ := blake2b.New256(nil)

	_, _ = hasher.Write([]byte(req.URL.String()))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(req.Header.Get("Authorization")))

	return key + cacheKeySeparator + hex.EncodeToString(hasher.Sum(nil))
}

func (c *Client) lookup(ctx context.Context, cacheKey string, req *http.Request) (*Response, bool) {
	raw, ok := c.cache.Get(cacheKey)
	if !ok {
		return nil, false
	}

	var item cachedResponse
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&item); err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to decode cached response; removing")
		c.cache.Remove(cacheKey)

		return nil, false
	}

	span := audit.Span{
		Destination: audit.ToBackend,
		RequestID:   request_context.FromContext(ctx).RequestID,
		Method:      req.Method,
		URL:         req.URL.String(),
		StatusCode:  item.StatusCode,
		Cached:      true,
		Body:        item.Body,
	}
	span.Log()
	c.observe(span)

	return &Response{
		StatusCode: item.StatusCode,
		Header:     item.Header,
		Body:       item.Body,
		Cached:     true,
	}, true
}

func (c *Client) store(ctx context.Context, cacheKey string, resp *Response) {
	if strings.Contains(strings.ToLower(resp.Header.Get("Cache-Control")), "no-store") {
		return
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cachedResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       resp.Body,
	}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to serialize response for cache")

		return
	}

	c.cache.AddWithTTL(cacheKey, buf.Bytes(), c.cacheTTL)
}

// Invalidate drops cached responses whose key starts with any of keyPrefixes
// and returns how many were removed. Safe to call with the cache disabled.
func (c *Client) Invalidate(keyPrefixes ...string) int {
	if c.cache == nil || len(keyPrefixes) == 0 {
		return 0
	}

	removed := c.cache.RemoveFunc(func(cacheKey string) bool {
		key := cacheKey
		if i := strings.LastIndex(cacheKey, cacheKeySeparator); i >= 0 {
			key = cacheKey[:i]
		}

		for _, prefix := range keyPrefixes {
			if strings.HasPrefix(key, prefix) {
				return true
			}
		}

		return false
	})

	log.Debug().
		Int("count", removed).
		Strs("prefixes", keyPrefixes).
		Msg("Invalidated cached responses")

	return removed
}
