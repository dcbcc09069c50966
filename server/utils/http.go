// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"
)

const (
	// maxIdleConnsPerHost bounds idle keep-alive connections to the backend.
	maxIdleConnsPerHost = 20

	// bufferSize defines the read and write buffer size in bytes (32KB).
	bufferSize = 32 * 1024
)

// HTTPClient is the pre-configured client used for backend calls.
//
// No client-wide timeout is set: callers bound requests through their context.
var HTTPClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		WriteBufferSize:     bufferSize,
		ReadBufferSize:      bufferSize,
	},
}

// IsConnectionSecure returns whether a connection is secure.
//
// X-Forwarded-Proto is trusted only from private and loopback peers, which
// covers the usual reverse proxy setups. A proxy with a public address in
// front of the application is reported as insecure.
func IsConnectionSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}

	parsedIP := net.ParseIP(host)
	if parsedIP == nil {
		return false
	}

	return (parsedIP.IsPrivate() || parsedIP.IsLoopback()) && r.Header.Get("X-Forwarded-Proto") == "https"
}

// IsHtmxRequest reports whether the request was issued by htmx.
func IsHtmxRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// SameOriginReferer returns the path and query of the Referer header when it
// points at this origin, or "" otherwise.
func SameOriginReferer(r *http.Request) string {
	referer := r.Referer()
	origin := GetOriginFromRequest(r)

	if referer == "" || !strings.HasPrefix(referer, origin) {
		return ""
	}

	return SanitizeReturnPath(strings.TrimPrefix(referer, origin))
}

// RedirectBack answers with 303 to returnPath when it is a safe local path,
// falling back to the same-origin referer and then to fallback.
func RedirectBack(w http.ResponseWriter, r *http.Request, returnPath, fallback string) {
	target := SanitizeReturnPath(returnPath)
	if target == "" {
		target = SameOriginReferer(r)
	}

	if target == "" {
		target = fallback
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RedirectTo sends the client to target and returns the status code used.
//
// htmx requests get an HX-Redirect header with 200, since htmx follows
// ordinary redirects through XHR without changing the page.
func RedirectTo(w http.ResponseWriter, r *http.Request, target string) int {
	if IsHtmxRequest(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)

		return http.StatusOK
	}

	http.Redirect(w, r, target, http.StatusFound)

	return http.StatusFound
}
