// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

// UnauthorizedError signals that the backend rejected the session token.
//
// The error handling middleware clears the token and sends the visitor to the
// login page.
type UnauthorizedError struct {
	// LoginReturnPath is where to go once the login succeeds.
	LoginReturnPath string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized"
}

// NewUnauthorizedError creates an UnauthorizedError.
func NewUnauthorizedError(loginReturnPath string) error {
	return &UnauthorizedError{LoginReturnPath: loginReturnPath}
}
