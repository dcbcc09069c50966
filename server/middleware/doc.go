// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware provides the request pipeline shared by every route:
error translation, response headers, URL normalization, the dark-mode
preference, CSRF protection and the backend session token.

The order in which they run is set up in router.RegisterMiddleware.
*/
package middleware
