// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package untrusted

import (
	"net/http"

	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/server/utils"
)

// GetUserToken retrieves the backend session token from the request's token cookie.
func GetUserToken(r *http.Request) string {
	return GetCookie(r, cookie.TokenCookie)
}

// GetReturnPath returns the same-origin path remembered before a login redirect.
//
// Anything that is not a local absolute path yields "".
func GetReturnPath(r *http.Request) string {
	return utils.SanitizeReturnPath(GetCookie(r, cookie.ReturnPathCookie))
}
