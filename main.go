// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
presetfe is a server-rendered front-end for the reaction-test backend.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/config"
	"codeberg.org/presetfe/presetfe/core/audit"
	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/requests"
	"codeberg.org/presetfe/presetfe/core/requests/lrucache"
	"codeberg.org/presetfe/presetfe/server/metrics"
	"codeberg.org/presetfe/presetfe/server/router"
	"codeberg.org/presetfe/presetfe/server/routes"
	"codeberg.org/presetfe/presetfe/server/utils"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	writeTimeout      time.Duration = 30 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run loads the configuration, serves until SIGINT or SIGTERM, then drains
// in-flight requests.
func run() error {
	audit.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	handler, err := newHandler(&config.Global)
	if err != nil {
		return err
	}

	listener, err := listen(&config.Global)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)

	go func() { served <- srv.Serve(listener) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown requested, draining connections")

	drainCtx, cancel := context.WithTimeout(context.Background(), serverShutdownDeadline)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info().Msg("Server stopped")

	return nil
}

// newHandler builds the backend client and the router from cfg.
func newHandler(cfg *config.ServerConfig) (http.Handler, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	opts := []requests.Option{
		requests.WithHTTPClient(utils.HTTPClient),
		requests.WithInterceptors(backend.Interceptors()...),
	}

	if m != nil {
		opts = append(opts, requests.WithObserver(m))
	}

	if cfg.Cache.Enabled {
		cache, err := lrucache.NewLRUCache(cfg.Cache.Size, cfg.Cache.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}

		opts = append(opts, requests.WithCache(cache, cfg.Cache.TTL))

		log.Info().
			Int("size", cfg.Cache.Size).
			Dur("ttl", cfg.Cache.TTL).
			Bool("compress", cfg.Cache.Compress).
			Msg("Initialized backend response cache")
	}

	api, err := requests.New(cfg.BackendBaseURL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	r := router.NewRouter(m)
	r.DefineRoutes(routes.New(backend.New(api)), cfg.Development.InDevelopment)
	r.RegisterMiddleware(cfg, &config.CSRFSigner)

	return r, nil
}
