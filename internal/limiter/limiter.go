// Package limiter bounds how many agent attempts run at once.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting semaphore. Waiters are granted slots in the order
// they asked for them.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	inUse    atomic.Int64
}

// New creates a limiter with the given capacity. Values below 1 are clamped
// to 1.
func New(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inUse.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking and reports whether it succeeded.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.inUse.Add(1)
	return true
}

// Release returns a slot and wakes the longest waiter, if any.
func (l *Limiter) Release() {
	l.inUse.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a slot. The slot is released when fn returns or
// panics.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// InUse returns the number of held slots.
func (l *Limiter) InUse() int {
	return int(l.inUse.Load())
}

// Capacity returns the maximum number of concurrent holders.
func (l *Limiter) Capacity() int {
	return l.capacity
}
