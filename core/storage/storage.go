// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package storage is string-keyed persistent client state.

In a browser session the state lives in cookies; Memory is used wherever there
is no browser on the other end, such as tests and server-internal renders.
*/
package storage

import (
	"sync"

	"codeberg.org/presetfe/presetfe/core/cookie"
)

// Well-known keys.
const (
	TokenKey    = string(cookie.TokenCookie)
	DarkModeKey = string(cookie.DarkModeCookie)
)

// Storage reads and writes persistent client state.
type Storage interface {
	// GetItem returns the value for key and whether it was present.
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Memory is an in-process Storage safe for concurrent use. The zero value is ready to use.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemory returns a Memory holding a copy of initial.
func NewMemory(initial map[string]string) *Memory {
	m := &Memory{items: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.items[k] = v
	}

	return m
}

func (m *Memory) GetItem(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]

	return value, ok
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items == nil {
		m.items = make(map[string]string)
	}

	m.items[key] = value

	return nil
}

func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)

	return nil
}
