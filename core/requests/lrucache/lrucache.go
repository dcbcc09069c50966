// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package lrucache provides a thread-safe, fixed-capacity least-recently-used
cache of byte slices with optional per-entry expiry.

When created with compression enabled via [NewLRUCache], values are stored
zstd-compressed whenever that makes them smaller and are decompressed
transparently on read.
*/
package lrucache

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// LRUCache is a fixed-capacity, least-recently-used cache that is safe for concurrent use.
//
// The zero value is not ready for use; construct it with [NewLRUCache].
type LRUCache struct {
	size      int
	evictList *list.List
	items     map[string]*list.Element
	lock      sync.Mutex

	// nil when compression is disabled
	enc *zstd.Encoder
	dec *zstd.Decoder

	now func() time.Time
}

type entry struct {
	key        string
	value      []byte
	compressed bool
	expiresAt  time.Time // zero means never
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewLRUCache creates a cache holding at most size entries.
func NewLRUCache(size int, compress bool) (*LRUCache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &LRUCache{
		size:      size,
		evictList: list.New(),
		items:     make(map[string]*list.Element, size),
		now:       time.Now,
	}

	if compress {
		// nil writer/reader: only EncodeAll/DecodeAll are used, both safe for concurrent calls
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, err
		}

		c.enc, c.dec = enc, dec
	}

	return c, nil
}

// Add stores value under key without expiry. See AddWithTTL.
func (c *LRUCache) Add(key string, value []byte) bool {
	return c.AddWithTTL(key, value, 0)
}

// AddWithTTL stores a copy of value under key, replacing any previous entry.
//
// A non-positive ttl means the entry never expires. The entry becomes the most
// recently used. AddWithTTL reports whether another entry was evicted to make room.
func (c *LRUCache) AddWithTTL(key string, value []byte, ttl time.Duration) bool {
	stored, compressed := c.encode(value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)

		ent := el.Value.(*entry)
		ent.value, ent.compressed, ent.expiresAt = stored, compressed, expiresAt

		return false
	}

	c.items[key] = c.evictList.PushFront(&entry{
		key:        key,
		value:      stored,
		compressed: compressed,
		expiresAt:  expiresAt,
	})

	if c.evictList.Len() <= c.size {
		return false
	}

	c.removeElement(c.evictList.Back())

	return true
}

// Get returns a copy of the value for key and marks it as most recently used.
//
// Expired entries are removed and reported as missing.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.lock.Lock()

	el, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	ent := el.Value.(*entry)
	if ent.expired(c.now()) {
		c.removeElement(el)
		c.lock.Unlock()

		return nil, false
	}

	c.evictList.MoveToFront(el)

	stored, compressed := ent.value, ent.compressed

	c.lock.Unlock()

	return c.decode(stored, compressed)
}

// Peek is Get without touching the recency order or removing expired entries.
func (c *LRUCache) Peek(key string) ([]byte, bool) {
	c.lock.Lock()

	el, ok := c.items[key]
	if !ok {
		c.lock.Unlock()

		return nil, false
	}

	ent := el.Value.(*entry)
	if ent.expired(c.now()) {
		c.lock.Unlock()

		return nil, false
	}

	stored, compressed := ent.value, ent.compressed

	c.lock.Unlock()

	return c.decode(stored, compressed)
}

// Remove deletes key and reports whether it was present.
func (c *LRUCache) Remove(key string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	el, ok := c.items[key]
	if ok {
		c.removeElement(el)
	}

	return ok
}

// RemoveFunc deletes every entry whose key satisfies match and returns how many were removed.
func (c *LRUCache) RemoveFunc(match func(key string) bool) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	removed := 0

	for el := c.evictList.Back(); el != nil; {
		prev := el.Prev()

		if match(el.Value.(*entry).key) {
			c.removeElement(el)
			removed++
		}

		el = prev
	}

	return removed
}

// Keys returns all keys from the oldest to the newest, expired ones included.
func (c *LRUCache) Keys() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	keys := make([]string, 0, len(c.items))
	for el := c.evictList.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry).key)
	}

	return keys
}

// Len returns the number of entries, expired ones included.
func (c *LRUCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictList.Len()
}

// removeElement must be called with the lock held.
func (c *LRUCache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// encode returns the representation to store. It never aliases value.
func (c *LRUCache) encode(value []byte) ([]byte, bool) {
	if len(value) == 0 {
		return []byte{}, false
	}

	if c.enc != nil {
		if packed := c.enc.EncodeAll(value, nil); len(packed) < len(value) {
			return packed, true
		}
	}

	return append([]byte(nil), value...), false
}

// decode returns a copy the caller is free to modify.
func (c *LRUCache) decode(stored []byte, compressed bool) ([]byte, bool) {
	if !compressed {
		return append([]byte{}, stored...), true
	}

	decoded, err := c.dec.DecodeAll(stored, nil)
	if err != nil {
		return nil, false
	}

	return decoded, true
}
