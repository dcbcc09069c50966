// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "time"

// Listener defaults, applied during validation when no unix socket is configured.
const (
	DefaultHost = "localhost"
	DefaultPort = "3000"
)

const (
	// Default keyed response cache TTL in seconds.
	defaultCacheTTLSeconds = 30
	// Default CSRF token lifetime in hours.
	defaultCSRFTTLHours = 12
	// Default limiter refill rate in tokens per second.
	defaultLimiterRate = 1.0
	// Default limiter bucket size.
	defaultLimiterBurst = 20
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Backend.RawURL = DefaultBackendURL

	cfg.Cache.Enabled = false
	cfg.Cache.Size = 100
	cfg.Cache.TTL = defaultCacheTTLSeconds * time.Second
	cfg.Cache.Compress = true

	cfg.Csrf.Enabled = true
	cfg.Csrf.TTL = defaultCSRFTTLHours * time.Hour

	cfg.Limiter.Enabled = false
	cfg.Limiter.Rate = defaultLimiterRate
	cfg.Limiter.Burst = defaultLimiterBurst

	cfg.Metrics.Enabled = false

	cfg.Development.SaveResponses = false
	cfg.Development.ResponseSaveLocation = "/tmp/presetfe/responses"

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
