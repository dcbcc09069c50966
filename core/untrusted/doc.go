// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package untrusted reads and writes public state in a request.

Public state, meaning HTTP cookies, is received from the user agent and can be
anything. The user controls all of it.
*/
package untrusted
