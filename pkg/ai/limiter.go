package ai

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a process-wide minimum delay between upstream requests.
// A single Limiter is shared by every component that issues scoring calls,
// so concurrent callers queue behind the same delay instead of racing the
// provider's rate budget independently.
type Limiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	last     time.Time
}

// NewLimiter returns a Limiter with the given minimum spacing between calls.
// A non-positive delay disables waiting entirely.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{minDelay: minDelay}
}

// Acquire blocks until at least the configured delay has elapsed since the
// previous successful Acquire. The lock is held for the entire wait, which is
// what serializes concurrent callers. Returns the context error if the caller
// is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.minDelay > 0 && !l.last.IsZero() {
		wait := l.minDelay - time.Since(l.last)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.last = time.Now()
	return nil
}
