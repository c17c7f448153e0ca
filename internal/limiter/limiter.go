// Package limiter provides the process-wide concurrency limiter that gates
// every backend sampler call.
// This package is internal and should not be imported by external projects.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting semaphore shared by all simultaneously active voting
// runs. semaphore.Weighted admits waiters in FIFO order, so no run starves
// regardless of how many voters contend for slots.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64

	inUse    atomic.Int64
	acquired atomic.Int64
	waited   atomic.Int64
}

// New creates a Limiter admitting at most capacity concurrent holders.
func New(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is available or ctx is done. Callers must pair
// every successful Acquire with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if !l.sem.TryAcquire(1) {
		l.waited.Add(1)
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	l.inUse.Add(1)
	l.acquired.Add(1)
	return nil
}

// Release returns a slot to the pool.
func (l *Limiter) Release() {
	l.inUse.Add(-1)
	l.sem.Release(1)
}

// InUse returns the number of currently held slots.
func (l *Limiter) InUse() int64 { return l.inUse.Load() }

// Capacity returns the configured maximum.
func (l *Limiter) Capacity() int64 { return l.capacity }

// Acquired returns the cumulative number of successful acquisitions.
func (l *Limiter) Acquired() int64 { return l.acquired.Load() }

// Waited returns how many acquisitions had to block for a slot.
func (l *Limiter) Waited() int64 { return l.waited.Load() }
