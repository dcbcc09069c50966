// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/core/untrusted"
)

var (
	errUnknownKey     = errors.New("key is not a known cookie")
	errHeadersWritten = errors.New("response headers already sent")
)

// Cookies is the Storage of one request: reads come from the request's
// cookies and writes become Set-Cookie headers on the response.
//
// Writes are remembered, so a later GetItem through the same instance sees them.
type Cookies struct {
	w http.ResponseWriter
	r *http.Request

	mu      sync.Mutex
	pending map[string]*string // nil value: removed
	sealed  bool
}

// NewCookies returns the cookie storage for one exchange.
func NewCookies(w http.ResponseWriter, r *http.Request) *Cookies {
	return &Cookies{w: w, r: r, pending: make(map[string]*string)}
}

func (c *Cookies) GetItem(key string) (string, bool) {
	name, ok := knownCookie(key)
	if !ok {
		return "", false
	}

	c.mu.Lock()
	value, overridden := c.pending[key]
	c.mu.Unlock()

	if overridden {
		if value == nil {
			return "", false
		}

		return *value, true
	}

	return untrusted.LookupCookie(c.r, name)
}

// SetItem stores value. An empty value is kept as an empty cookie rather than
// clearing it.
func (c *Cookies) SetItem(key, value string) error {
	name, err := c.writable(key)
	if err != nil {
		return err
	}

	if value == "" {
		// untrusted.SetCookie treats "" as a removal
		untrusted.SetEmptyCookie(c.w, c.r, name)
	} else {
		untrusted.SetCookie(c.w, c.r, name, value)
	}

	c.mu.Lock()
	c.pending[key] = &value
	c.mu.Unlock()

	return nil
}

func (c *Cookies) RemoveItem(key string) error {
	name, err := c.writable(key)
	if err != nil {
		return err
	}

	untrusted.ClearCookie(c.w, c.r, name)

	c.mu.Lock()
	c.pending[key] = nil
	c.mu.Unlock()

	return nil
}

// Seal marks the response headers as sent. Later writes fail instead of being silently lost.
func (c *Cookies) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

func (c *Cookies) writable(key string) (cookie.CookieName, error) {
	name, ok := knownCookie(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", errUnknownKey, key)
	}

	c.mu.Lock()
	sealed := c.sealed
	c.mu.Unlock()

	if sealed {
		return "", fmt.Errorf("cannot write %q: %w", key, errHeadersWritten)
	}

	return name, nil
}

func knownCookie(key string) (cookie.CookieName, bool) {
	for _, name := range cookie.AllCookieNames {
		if string(name) == key {
			return name, true
		}
	}

	return "", false
}
