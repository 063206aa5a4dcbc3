/*
 * Copyright 2025 Farwatch Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache provides a generic expiring key-value store used to
// memoize expensive lookups such as DNS resolution and service detection.
package cache

import (
	"sync"
	"time"
)

const defaultMaxSize = 1024

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a TTL cache with lazy expiry on access. When full, Set evicts
// the entry with the oldest insertion timestamp (not LRU-on-access).
// All operations are serialized by a per-cache mutex.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[K]entry[V]
}

// New creates a cache holding at most maxSize entries, each valid for ttl
// after insertion. A non-positive maxSize selects the default bound.
func New[K comparable, V any](ttl time.Duration, maxSize int) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}

	return &Cache[K, V]{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[K]entry[V], maxSize),
	}
}

// Get returns the cached value if present and not expired. Expired entries
// are deleted on access.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	if time.Since(e.insertedAt) >= c.ttl {
		delete(c.entries, key)

		var zero V

		return zero, false
	}

	return e.value, true
}

// Set inserts or overwrites a value. At capacity, the oldest-inserted
// entry is evicted first.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = entry[V]{value: value, insertedAt: time.Now()}
}

func (c *Cache[K, V]) evictOldestLocked() {
	var (
		oldestKey K
		oldestAt  time.Time
		found     bool
	)

	for k, e := range c.entries {
		if !found || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
			found = true
		}
	}

	if found {
		delete(c.entries, oldestKey)
	}
}

// Cached is a read-through helper: it returns the cached value when
// present, otherwise computes, stores, and returns it. The computation
// runs outside the lock so other keys are not blocked; two concurrent
// callers for the same missing key may both compute. Acceptable for
// idempotent, side-effect-free lookups only. Compute errors are returned
// without caching.
func (c *Cache[K, V]) Cached(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v)

	return v, nil
}

// Len reports the number of entries, including any not yet lazily expired.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
