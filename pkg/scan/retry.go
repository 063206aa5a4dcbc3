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

package scan

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	retryBackoffFactor = 2.0
	retryJitterFactor  = 0.1 // 10% jitter
	retryMaxBackoff    = 30 * time.Second
)

// Retry runs fn up to attempts times with exponential backoff and jitter
// between failures. It is intended for flaky idempotent operations such as
// DNS lookups; port probes are never retried through it. The last error is
// wrapped into the returned error when all attempts fail.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var lastErr error

	backoff := base

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(addJitter(backoff)):
		}

		backoff = time.Duration(math.Min(
			float64(backoff)*retryBackoffFactor,
			float64(retryMaxBackoff),
		))
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

// addJitter spreads retries out to prevent synchronized bursts.
func addJitter(backoff time.Duration) time.Duration {
	jitter := time.Duration(float64(backoff) * retryJitterFactor * (rand.Float64()*2 - 1))

	jittered := backoff + jitter
	if jittered < 0 {
		return backoff
	}

	return jittered
}
