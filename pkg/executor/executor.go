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

// Package executor provides a fixed-concurrency fan-out/fan-in runner that
// maps a function over a list of inputs while preserving input order in
// the output.
package executor

import (
	"context"
	"sync"
)

// Options tunes a Run call. The zero value is valid.
type Options struct {
	// Progress, when set, is called after each completed item with a
	// strictly increasing completed count.
	Progress func(completed int)

	// OnPanic, when set, is called with the item index and recovered
	// value whenever the work function panics. The result at that index
	// stays the zero value.
	OnPanic func(index int, cause any)
}

// Run executes fn over items with at most concurrency workers active and
// returns a slice where results[i] corresponds to items[i]. The results
// slice is allocated up front and each worker writes only to its own
// index, so ordering is positional regardless of completion order.
//
// A panicking item yields a zero-value result at its index and never
// aborts the batch. concurrency <= 1 runs strictly sequentially with
// identical result semantics. Cancelling ctx stops dispatch of remaining
// items; their results stay zero values.
func Run[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) R, opts *Options) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	if opts == nil {
		opts = &Options{}
	}

	tracker := &progressTracker{notify: opts.Progress}

	if concurrency <= 1 {
		for i := range items {
			if ctx.Err() != nil {
				return results
			}

			results[i] = invoke(ctx, i, items[i], fn, opts.OnPanic)
			tracker.advance()
		}

		return results
	}

	if concurrency > len(items) {
		concurrency = len(items)
	}

	workCh := make(chan int, concurrency)

	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for idx := range workCh {
				results[idx] = invoke(ctx, idx, items[idx], fn, opts.OnPanic)
				tracker.advance()
			}
		}()
	}

	for i := range items {
		select {
		case <-ctx.Done():
			close(workCh)
			wg.Wait()

			return results
		case workCh <- i:
		}
	}

	close(workCh)
	wg.Wait()

	return results
}

// invoke runs fn for one item, converting a panic into a zero-value
// result so one failing item cannot take down the batch.
func invoke[T, R any](ctx context.Context, index int, item T, fn func(context.Context, T) R, onPanic func(int, any)) (result R) {
	defer func() {
		if cause := recover(); cause != nil {
			var zero R
			result = zero

			if onPanic != nil {
				onPanic(index, cause)
			}
		}
	}()

	return fn(ctx, item)
}

// progressTracker serializes progress callbacks so reported counts are
// monotonically increasing even when completions race.
type progressTracker struct {
	mu        sync.Mutex
	completed int
	notify    func(int)
}

func (p *progressTracker) advance() {
	if p.notify == nil {
		return
	}

	p.mu.Lock()
	p.completed++
	p.notify(p.completed)
	p.mu.Unlock()
}
