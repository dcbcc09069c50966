// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package cookie defines the cookie names used by this application.

The session token and the dark-mode preference keep the key names the browser
client used in local storage, so both front-ends agree on where state lives.
*/
package cookie

type CookieName string

// NOTE: the `__Host-` prefix is not used so that plain HTTP deployments on a
// LAN address can still log in.
const (
	// TokenCookie holds the bearer token issued by the backend.
	TokenCookie CookieName = "token" // #nosec:G101 - false positive
	// DarkModeCookie holds the JSON literal true or false.
	DarkModeCookie CookieName = "darkMode"
	// CSRFCookie holds the random nonce that CSRF tokens are bound to.
	CSRFCookie CookieName = "csrf"
	// ReturnPathCookie remembers where the user was headed before being sent to the login page.
	ReturnPathCookie CookieName = "returnPath"
)

// AllCookieNames defines all cookies that can be set by the application.
var AllCookieNames = []CookieName{
	TokenCookie,
	DarkModeCookie,
	CSRFCookie,
	ReturnPathCookie,
}

// IsHttpOnly reports whether scripts running in the page should be denied access to the cookie.
//
// The dark-mode preference stays readable so a page script can apply it before first paint.
func IsHttpOnly(name CookieName) bool {
	return name != DarkModeCookie
}
