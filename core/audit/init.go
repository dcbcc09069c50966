// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package audit records outgoing and incoming HTTP traffic as log lines,
// runtime/trace tasks and Server-Timing metrics.
package audit

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetDefaultLogger provides a readable log output on startup before the configuration is loaded.
func SetDefaultLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
