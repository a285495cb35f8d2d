package dispatch

import "context"

// Limiter is a counting semaphore bounding in-flight remote calls
// across the whole process. All batches share one Limiter, so two
// concurrent requests draw from the same budget.
type Limiter struct {
	permits chan struct{}
}

// NewLimiter creates a limiter with the given capacity.
func NewLimiter(capacity int) *Limiter {
	l := &Limiter{
		permits: make(chan struct{}, capacity),
	}
	for i := 0; i < capacity; i++ {
		l.permits <- struct{}{}
	}
	return l
}

// Acquire takes a permit, blocking until one is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-l.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit. Safe to call on every completion path;
// extra releases are dropped rather than growing capacity.
func (l *Limiter) Release() {
	select {
	case l.permits <- struct{}{}:
	default:
	}
}

// InFlight reports how many permits are currently held.
func (l *Limiter) InFlight() int {
	return cap(l.permits) - len(l.permits)
}
