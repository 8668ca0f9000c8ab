// Package ratelimit provides sliding-window admission control for
// calls to the summarization service.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most limit calls within any trailing window.
// Callers over the ceiling are suspended until the oldest admission
// leaves the window, in FIFO order of window expiry.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter with a 60-second window.
func New(limit int) *Limiter {
	return &Limiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Admit blocks until the call can proceed without exceeding the
// ceiling, then records it. Returns early only if ctx is cancelled.
func (l *Limiter) Admit(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.calls) < l.limit {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		// Wait a beat past the oldest call's window exit.
		wait := l.calls[0].Add(l.window).Sub(now) + time.Second
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	l.calls = l.calls[i:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
