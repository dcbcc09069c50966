// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package limiter is a middleware that applies a per-client token bucket to
incoming requests.

Clients are keyed by IP address. Addresses on the pass list are never limited.
*/
package limiter
