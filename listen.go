// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/config"
)

var (
	errSocketMode  = errors.New("cannot set unix socket mode")
	errSocketOwner = errors.New("cannot set unix socket owner")
)

// listen opens the unix socket when one is configured, otherwise host:port.
func listen(cfg *config.ServerConfig) (net.Listener, error) {
	var lc net.ListenConfig

	if sock := cfg.Basic.UnixSocket; sock != "" {
		ln, err := lc.Listen(context.Background(), "unix", sock)
		if err != nil {
			return nil, fmt.Errorf("listen on unix socket %s: %w", sock, err)
		}

		if err := prepareSocket(cfg); err != nil {
			_ = ln.Close()

			return nil, err
		}

		log.Info().Str("socket", sock).Msg("Listening on unix socket")

		return ln, nil
	}

	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort(cfg.Basic.Host, cfg.Basic.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on %s:%s: %w", cfg.Basic.Host, cfg.Basic.Port, err)
	}

	// Port may have been "0".
	bound := ln.Addr().String()
	if _, port, err := net.SplitHostPort(bound); err == nil {
		log.Info().
			Str("address", bound).
			Str("url", "http://localhost:"+port+"/").
			Msg("Listening")
	}

	return ln, nil
}

// prepareSocket applies the configured owner and mode to the socket file.
func prepareSocket(cfg *config.ServerConfig) error {
	basic := cfg.Basic

	uid, err := lookupID(basic.UnixSocketUser, lookupUser)
	if err != nil {
		return fmt.Errorf("%w: %w", errSocketOwner, err)
	}

	gid, err := lookupID(basic.UnixSocketGroup, lookupGroup)
	if err != nil {
		return fmt.Errorf("%w: %w", errSocketOwner, err)
	}

	if uid >= 0 || gid >= 0 {
		if err := os.Chown(basic.UnixSocket, uid, gid); err != nil {
			return fmt.Errorf("%w: %w", errSocketOwner, err)
		}
	}

	if err := os.Chmod(basic.UnixSocket, basic.UnixSocketPermissions); err != nil {
		return fmt.Errorf("%w: %w", errSocketMode, err)
	}

	return nil
}

func lookupUser(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}

	return u.Uid, nil
}

func lookupGroup(name string) (string, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return "", err
	}

	return g.Gid, nil
}

// lookupID resolves a numeric id or a name. Empty means unchanged (-1).
func lookupID(value string, byName func(string) (string, error)) (int, error) {
	if value == "" {
		return -1, nil
	}

	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}

	raw, err := byName(value)
	if err != nil {
		return -1, err
	}

	return strconv.Atoi(raw)
}
