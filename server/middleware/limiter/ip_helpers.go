// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// clientIP extracts the client's IP address from an HTTP request.
//
// Proxy headers (X-Real-IP, X-Forwarded-For) are only trusted when the
// connection comes from a private or loopback address.
func clientIP(r *http.Request) string {
	remoteIP := r.RemoteAddr
	if ip, _, err := net.SplitHostPort(remoteIP); err == nil {
		remoteIP = ip
	}

	trusted := false
	if ip := net.ParseIP(remoteIP); ip != nil {
		trusted = ip.IsPrivate() || ip.IsLoopback()
	}

	if trusted {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}

		// last hop of the proxy chain
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			parts := strings.Split(xff, ",")

			return strings.TrimSpace(parts[len(parts)-1])
		}
	}

	if remoteIP == "" {
		log.Error().Msg("Could not determine client IP")
	}

	return remoteIP
}

// ipMatchesList reports whether rawIP equals, or falls inside, any entry of list.
func ipMatchesList(rawIP net.IP, list []string) bool {
	if rawIP == nil {
		return false
	}

	ipStr := rawIP.String()

	for _, entry := range list {
		if ipStr == entry {
			return true
		}

		_, subnet, err := net.ParseCIDR(entry)
		if err == nil && subnet.Contains(rawIP) {
			return true
		}
	}

	return false
}
