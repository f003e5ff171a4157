package guardrail

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Bulkhead caps how many protected operations run concurrently. Acquire
// blocks cooperatively until a permit frees up; the permit is released on
// every exit path, so at most maxConcurrent wrapped operations ever run at
// once for a given instance.
//
// Pattern: Bulkhead — concurrency isolation via a counting semaphore.
type Bulkhead struct {
	sem      *semaphore.Weighted
	max      int64
	inFlight atomic.Int64
	hooks    *Hooks
}

// NewBulkhead creates a bulkhead with maxConcurrent permits. A
// maxConcurrent below 1 is raised to 1 so the bulkhead can never deadlock
// every caller.
func NewBulkhead(maxConcurrent int, hooks *Hooks) *Bulkhead {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Bulkhead{
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		max:   int64(maxConcurrent),
		hooks: hooks,
	}
}

// Acquire blocks until a permit is available or ctx is cancelled. On
// success the caller owns one permit and must call Release.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	b.inFlight.Add(1)
	b.hooks.emitBulkheadAcquired()

	return nil
}

// TryAcquire takes a permit without blocking, returning ErrBulkheadFull
// when every permit is in use.
func (b *Bulkhead) TryAcquire() error {
	if !b.sem.TryAcquire(1) {
		b.hooks.emitBulkheadFull()
		return ErrBulkheadFull
	}

	b.inFlight.Add(1)
	b.hooks.emitBulkheadAcquired()

	return nil
}

// Release returns a permit taken by Acquire or TryAcquire.
func (b *Bulkhead) Release() {
	b.inFlight.Add(-1)
	b.sem.Release(1)
	b.hooks.emitBulkheadReleased()
}

// Full reports whether all permits are currently in use.
func (b *Bulkhead) Full() bool {
	return b.inFlight.Load() >= b.max
}

// Run executes op while holding one of b's permits, blocking until a permit
// is free. The permit is released unconditionally — also when op returns an
// error or panics — before the result propagates to the caller.
func Run[T any](ctx context.Context, b *Bulkhead, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.Acquire(ctx); err != nil {
		return zero, err
	}
	defer b.Release()

	return op(ctx)
}
