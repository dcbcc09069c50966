// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Timing is one Server-Timing entry.
type Timing struct {
	Name        string
	Duration    time.Duration
	Description string
}

// Timings collects Server-Timing entries from several goroutines.
//
// Use AddServerTimingHeader directly when there is only one.
type Timings struct {
	mu      sync.Mutex
	entries []Timing
}

func NewTimings() *Timings {
	return &Timings{}
}

func (t *Timings) Append(name string, duration time.Duration, desc string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, Timing{Name: name, Duration: duration, Description: desc})
}

// Len returns the number of collected entries.
func (t *Timings) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// WriteHeaders adds one Server-Timing header per entry. Call before WriteHeader.
func (t *Timings) WriteHeaders(w http.ResponseWriter) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.entries {
		AddServerTimingHeader(w, entry.Name, entry.Duration, entry.Description)
	}
}

// AddServerTimingHeader writes a Server-Timing header.
func AddServerTimingHeader(w http.ResponseWriter, name string, duration time.Duration, description string) {
	w.Header().Add("Server-Timing", fmt.Sprintf(
		"%s;dur=%s;desc=\"%s\"",
		name,
		strconv.FormatFloat(float64(duration.Nanoseconds())/float64(time.Millisecond), 'f', -1, 64),
		description,
	))
}
