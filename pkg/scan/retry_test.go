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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	errAlways := errors.New("broken")
	calls := 0

	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errAlways
	})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, errAlways)
	assert.Equal(t, 3, calls)
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	errCh := make(chan error, 1)

	go func() {
		errCh <- Retry(ctx, 10, 50*time.Millisecond, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}

	assert.Less(t, calls, 10)
}

func TestRetryBacksOff(t *testing.T) {
	start := time.Now()

	_ = Retry(context.Background(), 3, 20*time.Millisecond, func() error {
		return errors.New("transient")
	})

	// Two sleeps: ~20ms then ~40ms, both with up to 10% jitter.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
