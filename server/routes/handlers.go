// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"net/http"

	"codeberg.org/presetfe/presetfe/core/backend"
)

// Handlers serves the routes that talk to the backend.
type Handlers struct {
	Backend *backend.Client
}

func New(client *backend.Client) *Handlers {
	return &Handlers{Backend: client}
}

// protected converts a rejected session token into an UnauthorizedError that
// brings the visitor back to r after logging in.
func protected(r *http.Request, err error) error {
	if errors.Is(err, backend.ErrUnauthorized) {
		return NewUnauthorizedError(r.URL.RequestURI())
	}

	return err
}
