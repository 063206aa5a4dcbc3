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

package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](time.Minute, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
}

func TestExpiry(t *testing.T) {
	c := New[string, string](20*time.Millisecond, 10)

	c.Set("k", "v")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(30 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)

	// Lazy expiry deleted the entry on access.
	assert.Equal(t, 0, c.Len())
}

func TestEvictOldest(t *testing.T) {
	c := New[string, int](time.Minute, 2)

	c.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	c.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	c.Set("third", 3)

	assert.Equal(t, 2, c.Len())

	_, ok := c.Get("first")
	assert.False(t, ok, "oldest-inserted entry should be evicted")

	_, ok = c.Get("second")
	assert.True(t, ok)

	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := New[string, int](time.Minute, 2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // overwrite at capacity must not evict b

	_, ok := c.Get("b")
	assert.True(t, ok)

	v, _ := c.Get("a")
	assert.Equal(t, 3, v)
}

func TestCached(t *testing.T) {
	c := New[string, int](time.Minute, 10)

	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.Cached("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.Cached("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "second lookup must hit the cache")
}

func TestCachedError(t *testing.T) {
	c := New[string, int](time.Minute, 10)

	errBoom := errors.New("boom")

	_, err := c.Cached("k", func() (int, error) { return 0, errBoom })
	require.ErrorIs(t, err, errBoom)

	// Failed computations are not cached.
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute, 64)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			for j := 0; j < 200; j++ {
				c.Set(j%32, n)
				c.Get(j % 32)
			}
		}(i)
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
