// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package untrusted

import (
	"net/http"
	"net/url"
	"time"

	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/server/utils"
)

// CookieSameSite is Lax so the token cookie survives a top-level navigation
// from an external link.
const CookieSameSite = http.SameSiteLaxMode

// Cookies expire 30 days after they are set.
const cookieMaxAge = 30 * 24 * time.Hour

// A date in the past. Setting it as Expires removes a cookie.
var cookieExpireDelete = time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)

func newCookie(name cookie.CookieName, value string, expires time.Time, isSecure bool) http.Cookie {
	return http.Cookie{
		Name:     string(name),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   isSecure,
		HttpOnly: cookie.IsHttpOnly(name),
		SameSite: CookieSameSite,
	}
}

// LookupCookie returns the decoded cookie value and whether the cookie was sent at all.
//
// A cookie whose value cannot be decoded is reported as absent.
func LookupCookie(r *http.Request, name cookie.CookieName) (string, bool) {
	c, err := r.Cookie(string(name))
	if err != nil {
		return "", false
	}

	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false
	}

	return value, true
}

// GetCookie returns the decoded cookie value, or "" when it is missing.
func GetCookie(r *http.Request, name cookie.CookieName) string {
	value, _ := LookupCookie(r, name)

	return value
}

// SetCookie writes a cookie. An empty value clears it instead.
func SetCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName, value string) {
	if value == "" {
		ClearCookie(w, r, name)

		return
	}

	c := newCookie(name, url.QueryEscape(value), time.Now().Add(cookieMaxAge), utils.IsConnectionSecure(r))
	http.SetCookie(w, &c)
}

// SetEmptyCookie writes a cookie that is present but holds no value.
func SetEmptyCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName) {
	c := newCookie(name, "", time.Now().Add(cookieMaxAge), utils.IsConnectionSecure(r))
	http.SetCookie(w, &c)
}

// ClearCookie tells the user agent to drop the cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName) {
	c := newCookie(name, "", cookieExpireDelete, utils.IsConnectionSecure(r))
	http.SetCookie(w, &c)
}
