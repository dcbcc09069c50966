// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/core/authenticated"
	"codeberg.org/presetfe/presetfe/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errInvalidCacheSize             = errors.New("cache.cacheSize must be positive when the cache is enabled")
	errInvalidCacheTTL              = errors.New("cache.cacheTTL must be positive when the cache is enabled")
	errInvalidLimiterRate           = errors.New("limiter.rate must be positive")
	errInvalidLimiterBurst          = errors.New("limiter.burst must be positive")
	errInvalidCSRFTTL               = errors.New("csrf.ttl must be positive")
	errCSRFSecretInvalid            = errors.New("csrf.secret is not a valid paseto key")
	errInvalidLogFormat             = errors.New(`log.logFormat must be "console" or "json"`)
)

var fileModeOctalRegexp = regexp.MustCompile(`^0?[0-7]{3}$`)

// validateAndSet validates the server configuration and populates derived fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	backendURL, err := utils.ParseURL(cfg.Backend.RawURL, "Backend")
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}

	cfg.Backend.URL = *backendURL

	if cfg.Cache.Enabled {
		if cfg.Cache.Size <= 0 {
			return errInvalidCacheSize
		}

		if cfg.Cache.TTL <= 0 {
			return errInvalidCacheTTL
		}
	}

	if cfg.Limiter.Enabled {
		if cfg.Limiter.Rate <= 0 {
			return errInvalidLimiterRate
		}

		if cfg.Limiter.Burst <= 0 {
			return errInvalidLimiterBurst
		}
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return errInvalidLogFormat
	}

	return cfg.setupCSRF()
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = DefaultHost
			log.Info().
				Str("host", cfg.Basic.Host).
				Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = DefaultPort
			log.Info().
				Str("port", cfg.Basic.Port).
				Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	switch {
	case cfg.Basic.RawUnixSocketPermissions == "":
		cfg.Basic.UnixSocketPermissions = 0o666
	case fileModeOctalRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		rawModeUint64, _ := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)

		cfg.Basic.UnixSocketPermissions = os.FileMode(rawModeUint64)
	default:
		return errUnixSocketInvalidPermissions
	}

	return nil
}

// setupCSRF loads the signing key for CSRF tokens.
//
// Without a configured secret an ephemeral key is generated; tokens issued by a
// previous process then stop validating after a restart.
func (cfg *ServerConfig) setupCSRF() error {
	if !cfg.Csrf.Enabled {
		return nil
	}

	if cfg.Csrf.TTL <= 0 {
		return errInvalidCSRFTTL
	}

	if cfg.Csrf.Secret == "" {
		CSRFSigner = authenticated.NewSigner()

		log.Warn().Msg("No csrf.secret configured, using an ephemeral key")

		return nil
	}

	if err := CSRFSigner.LoadSecretKeyFromHex(cfg.Csrf.Secret); err != nil {
		log.Error().
			Err(err).
			Msgf("Generated secret key (put this in config.yaml)\ncsrf:\n  secret: \"%s\"", authenticated.NewSecretKeyHex())

		return errCSRFSecretInvalid
	}

	// remove key. no longer needed.
	cfg.Csrf.Secret = ""

	return nil
}
