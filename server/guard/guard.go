// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package guard decides whether a navigation to a protected route may proceed.

A hook sees where the visitor is going, where they came from and, when the
navigation happens in a browser session, the visitor's client storage.
*/
package guard

import (
	"context"
	"net/url"

	"codeberg.org/presetfe/presetfe/core/storage"
)

// LoginPath is where visitors without a session are sent.
const LoginPath = "/login"

// Destination is one end of a navigation.
type Destination struct {
	Path  string
	Query url.Values
}

// Navigation is a pending route change.
type Navigation struct {
	To   Destination
	From Destination

	// Storage is nil when there is no browser session, for example during a
	// server-internal render. Hooks must not block such navigations on storage state.
	Storage storage.Storage
}

// Decision is the outcome of a hook. The zero value proceeds.
type Decision struct {
	redirect string
}

// Proceed lets the navigation continue.
func Proceed() Decision {
	return Decision{}
}

// RedirectTo replaces the navigation with one to path.
func RedirectTo(path string) Decision {
	return Decision{redirect: path}
}

// Redirect returns the replacement path, if any.
func (d Decision) Redirect() (string, bool) {
	return d.redirect, d.redirect != ""
}

// BeforeNavigate runs before a protected route is entered.
type BeforeNavigate func(ctx context.Context, nav Navigation) Decision

// RequireToken sends visitors without a stored session token to LoginPath.
//
// Only the presence of a non-empty token is checked, not its validity. The
// redirect carries no query parameters.
func RequireToken(_ context.Context, nav Navigation) Decision {
	if nav.Storage == nil {
		return Proceed()
	}

	token, ok := nav.Storage.GetItem(storage.TokenKey)
	if !ok || token == "" {
		return RedirectTo(LoginPath)
	}

	return Proceed()
}

// Chain runs hooks in order and returns the first redirect.
func Chain(hooks ...BeforeNavigate) BeforeNavigate {
	return func(ctx context.Context, nav Navigation) Decision {
		for _, hook := range hooks {
			if decision := hook(ctx, nav); !isProceed(decision) {
				return decision
			}
		}

		return Proceed()
	}
}

func isProceed(d Decision) bool {
	_, redirect := d.Redirect()

	return !redirect
}
