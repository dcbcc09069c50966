// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package lrucache

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, size int, compress bool) *LRUCache {
	t.Helper()

	c, err := NewLRUCache(size, compress)
	require.NoError(t, err)

	return c
}

func TestNewLRUCache(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		c, err := NewLRUCache(3, compress)
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
	}

	c, err := NewLRUCache(0, false)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.Nil(t, c)
}

func TestAddAndEvict(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 2, false)

	assert.False(t, c.Add("a", []byte("1")))
	assert.False(t, c.Add("b", []byte("2")))

	// touch a so that b becomes the oldest
	_, ok := c.Get("a")
	require.True(t, ok)

	assert.True(t, c.Add("c", []byte("3")))

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	assert.Equal(t, []string{"a", "c"}, c.Keys())
}

func TestUpdateExistingKey(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 2, false)

	c.Add("a", []byte("old"))
	assert.False(t, c.Add("a", []byte("new")))

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "new", string(got))
	assert.Equal(t, 1, c.Len())
}

func TestValuesAreCopied(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 1, false)

	value := []byte("abc")
	c.Add("k", value)
	value[0] = 'x'

	got, _ := c.Get("k")
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'

	again, _ := c.Peek("k")
	assert.Equal(t, "abc", string(again))
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 4, false)

	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.AddWithTTL("short", []byte("x"), time.Second)
	c.Add("forever", []byte("y"))

	now = now.Add(2 * time.Second)

	_, ok := c.Peek("short")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len(), "Peek leaves expired entries in place")

	_, ok = c.Get("short")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "Get drops expired entries")

	_, ok = c.Get("forever")
	assert.True(t, ok)
}

func TestCompression(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 2, true)

	big := bytes.Repeat([]byte(`{"name":"preset"}`), 200)
	c.Add("big", big)

	ent := c.items["big"].Value.(*entry)
	assert.True(t, ent.compressed)
	assert.Less(t, len(ent.value), len(big))

	c.Add("tiny", []byte("1"))
	c.Add("empty", nil)

	_, ok := c.Get("big")
	require.False(t, ok, "big was evicted by the third add")

	c.Add("big", big)

	got, ok := c.Get("big")
	require.True(t, ok)
	assert.Equal(t, big, got)

	got, ok = c.Get("empty")
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestRemoveFunc(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 10, false)

	for _, key := range []string{"/api/test_configs/", "/api/test_configs/1", "/api/item_configs/"} {
		c.Add(key, []byte(key))
	}

	removed := c.RemoveFunc(func(key string) bool { return strings.HasPrefix(key, "/api/test_configs") })
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"/api/item_configs/"}, c.Keys())

	assert.True(t, c.Remove("/api/item_configs/"))
	assert.False(t, c.Remove("/api/item_configs/"))
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 50, true)

	var wg sync.WaitGroup

	for worker := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 200 {
				key := strconv.Itoa((worker * i) % 80)
				c.AddWithTTL(key, []byte(strings.Repeat(key, 40)), time.Minute)

				if got, ok := c.Get(key); ok {
					assert.Equal(t, strings.Repeat(key, 40), string(got))
				}
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
