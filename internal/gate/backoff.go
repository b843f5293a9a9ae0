package gate

import (
	"context"
	"math/rand"
	"time"
)

// Default backoff bounds for delivery retries.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 30 * time.Second
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// newBackoff creates a backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Sleep blocks for the current backoff duration (±20% jitter) and doubles it,
// capped at max. It returns early with the context error on cancellation.
func (b *backoff) Sleep(ctx context.Context) error {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(float64(b.current) + jitter)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return nil
}

// Reset restores the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the next sleep duration before jitter.
func (b *backoff) Current() time.Duration {
	return b.current
}
