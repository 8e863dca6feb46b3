// Package worker provides the bounded parallel dispatch used by the
// bucket-processing flows.
package worker

import (
	"context"
	"fmt"
	"sync"
)

// DefaultMaxWorkers is the recommended pool ceiling; more concurrent
// callers tends to trip GitHub's secondary rate limits.
const DefaultMaxWorkers = 20

// Result is the per-item outcome record. Exactly one Result exists for
// every submitted item, failed or not, and it is never mutated after the
// worker returns.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Failed reports whether the item's worker returned an error.
func (r Result[T, R]) Failed() bool {
	return r.Err != nil
}

// Run dispatches fn over every item across a pool of at most maxWorkers
// concurrent workers. Results arrive in completion order, one per item; a
// worker error (or panic) is recorded as a failure result and never
// cancels sibling items. onProgress, when non-nil, observes the counter
// after each item completes.
func Run[T, R any](ctx context.Context, items []T, maxWorkers int, fn func(context.Context, T) (R, error), onProgress func(Status)) []Result[T, R] {
	if len(items) == 0 {
		return nil
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > len(items) {
		maxWorkers = len(items)
	}

	queue := make(chan T)
	results := make(chan Result[T, R])
	counter := NewCounter(len(items))

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				results <- runOne(ctx, item, fn)
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, item := range items {
			select {
			case queue <- item:
			case <-ctx.Done():
				// Drain the remaining items as cancellation failures so
				// the one-result-per-item invariant holds.
				results <- Result[T, R]{Item: item, Err: ctx.Err()}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]Result[T, R], 0, len(items))
	for result := range results {
		if result.Failed() {
			counter.IncrementFailed()
		} else {
			counter.IncrementProcessed()
		}
		if onProgress != nil {
			onProgress(counter.Status())
		}
		collected = append(collected, result)
	}

	return collected
}

// runOne invokes fn for a single item, converting panics into failure
// results so one bad item cannot take down the pool.
func runOne[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (result Result[T, R]) {
	result.Item = item
	defer func() {
		if rec := recover(); rec != nil {
			result.Err = fmt.Errorf("worker panic: %v", rec)
		}
	}()
	result.Value, result.Err = fn(ctx, item)
	return result
}
