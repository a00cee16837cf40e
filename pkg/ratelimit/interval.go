package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Sleeper pauses between dependent requests.
type Sleeper interface {
	// Sleep blocks for one delay period or until the context is cancelled.
	Sleep(ctx context.Context) error
}

// Interval produces a uniformly random delay in [min, max]. Jitter makes the
// request cadence look less mechanical than a fixed period would.
type Interval struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInterval creates an interval sleeper. If max < min, max is raised to min.
func NewInterval(min, max time.Duration) *Interval {
	if max < min {
		max = min
	}
	return &Interval{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns one randomized delay without sleeping.
func (i *Interval) Delay() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.max == i.min {
		return i.min
	}
	return i.min + time.Duration(i.rng.Int63n(int64(i.max-i.min)+1))
}

// Sleep blocks for one randomized delay, returning early with the context's
// error if cancelled.
func (i *Interval) Sleep(ctx context.Context) error {
	timer := time.NewTimer(i.Delay())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay is a Sleeper that never sleeps. Useful in tests.
type NoDelay struct{}

// Sleep returns immediately, honoring only prior cancellation.
func (NoDelay) Sleep(ctx context.Context) error {
	return ctx.Err()
}
