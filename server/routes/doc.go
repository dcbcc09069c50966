// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes holds the HTTP handlers.

Handlers return an error instead of writing error responses themselves;
middleware.CatchError turns the error into the final response.
*/
package routes
