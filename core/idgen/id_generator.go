// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package idgen makes short identifiers for requests and server instances.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

const entropyBytes = 3

// Make returns an ID made of the wall clock time (HHMMSS) and 3 random bytes.
//
// IDs are sortable within a day, which is enough to correlate log lines.
func Make() string {
	return MakeAt(time.Now())
}

// MakeAt is Make with an explicit time.
func MakeAt(t time.Time) string {
	entropy := [entropyBytes]byte{'p', 'f', 'e'}

	_, _ = rand.Read(entropy[:])

	return clockPart(t) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

func clockPart(t time.Time) string {
	return t.Format("150405")
}
