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

// Package ratelimit implements a token-bucket governor shared across
// in-flight probes.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidRate     = errors.New("rate must be greater than zero")
	ErrInvalidCapacity = errors.New("capacity must be greater than zero")
	ErrExceedsCapacity = errors.New("requested tokens exceed bucket capacity")
)

// Bucket is a token bucket with lazy refill. Tokens accumulate at a fixed
// rate up to capacity and are debited per acquire. All token state is
// guarded by a single mutex so concurrent callers cannot double-spend.
//
// No fairness guarantee is provided beyond the retry loop: callers may
// starve briefly under heavy contention.
type Bucket struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	capacity   float64
	tokens     float64
	lastRefill time.Time
}

// NewBucket creates a bucket filled to capacity. Misconfiguration is fatal
// at construction time, not deferred to the first acquire.
func NewBucket(rate, capacity float64) (*Bucket, error) {
	if rate <= 0 {
		return nil, ErrInvalidRate
	}

	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return &Bucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}, nil
}

// Acquire blocks until n tokens are available, then debits them atomically.
// The wait is bounded: each sleep covers exactly the deficit-to-refill time
// computed from the bucket rate. Cancelling ctx aborts the wait.
func (b *Bucket) Acquire(ctx context.Context, n float64) error {
	if n > b.capacity {
		return ErrExceedsCapacity
	}

	for {
		b.mu.Lock()
		b.refillLocked(time.Now())

		if b.tokens >= n {
			b.tokens -= n
			b.mu.Unlock()

			return nil
		}

		deficit := n - b.tokens
		b.mu.Unlock()

		wait := time.Duration(deficit / b.rate * float64(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refillLocked adds elapsed*rate tokens capped at capacity. Callers must
// hold b.mu.
func (b *Bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	b.lastRefill = now
}

// Tokens reports the current token count after applying pending refill.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())

	return b.tokens
}

// Capacity reports the configured maximum token count.
func (b *Bucket) Capacity() float64 {
	return b.capacity
}
