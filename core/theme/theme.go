// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package theme holds the visitor's dark-mode preference.

The preference is one boolean kept in memory and mirrored to client storage
under the darkMode key as the JSON literal true or false.
*/
package theme

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tidwall/gjson"

	"codeberg.org/presetfe/presetfe/core/storage"
)

// Store is the preference of one visitor. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	dark    bool
	storage storage.Storage
}

// New returns a Store in light mode backed by s.
func New(s storage.Storage) *Store {
	return &Store{storage: s}
}

// IsDark returns the in-memory preference.
func (st *Store) IsDark() bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.dark
}

// Initialize loads the preference from storage.
//
// A missing key, malformed JSON or any JSON value other than a boolean reads
// as false. Storage is never written.
func (st *Store) Initialize() bool {
	raw, _ := st.storage.GetItem(storage.DarkModeKey)

	dark := parse(raw)

	st.mu.Lock()
	st.dark = dark
	st.mu.Unlock()

	return dark
}

// Toggle flips the preference and persists the new value.
//
// Memory is updated even when persisting fails; the error is returned and the
// two copies differ until the next successful write.
func (st *Store) Toggle() (bool, error) {
	st.mu.Lock()
	st.dark = !st.dark
	dark := st.dark
	st.mu.Unlock()

	if err := st.storage.SetItem(storage.DarkModeKey, strconv.FormatBool(dark)); err != nil {
		return dark, fmt.Errorf("failed to persist dark mode preference: %w", err)
	}

	return dark, nil
}

func parse(raw string) bool {
	if raw == "" || !gjson.Valid(raw) {
		return false
	}

	result := gjson.Parse(raw)

	return result.Type == gjson.True
}

type storeKeyType struct{}

var storeKey = storeKeyType{}

// WithStore attaches st to ctx.
func WithStore(ctx context.Context, st *Store) context.Context {
	return context.WithValue(ctx, storeKey, st)
}

// FromContext returns the Store attached to ctx, or a fresh light-mode Store
// over empty in-memory storage.
func FromContext(ctx context.Context) *Store {
	if st, ok := ctx.Value(storeKey).(*Store); ok && st != nil {
		return st
	}

	return New(storage.NewMemory(nil))
}
