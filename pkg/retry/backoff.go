package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt.
type BackoffStrategy interface {
	// NextDelay returns the delay before the given attempt (1-based)
	NextDelay(attempt int) time.Duration
	// Reset returns the strategy to its initial state
	Reset()
}

// jittered spreads a delay by up to factor in either direction, so
// concurrent callers don't retry in lockstep.
func jittered(delay, factor float64) float64 {
	if factor <= 0 {
		return delay
	}
	spread := delay * factor
	delay += (rand.Float64()*2 - 1) * spread
	if delay < 0 {
		return 0
	}
	return delay
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at
// MaxDelay, with optional jitter.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0 to 1.0
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := math.Min(
		float64(eb.BaseDelay)*math.Pow(eb.Multiplier, float64(attempt-1)),
		float64(eb.MaxDelay),
	)
	return time.Duration(jittered(delay, eb.JitterFactor))
}

func (eb *ExponentialBackoff) Reset() {}

// LinearBackoff grows the delay by Increment per attempt, capped at MaxDelay.
type LinearBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Increment    time.Duration
	JitterFactor float64
}

// DefaultLinearBackoff returns a linear backoff with sensible defaults
func DefaultLinearBackoff() *LinearBackoff {
	return &LinearBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		Increment:    1 * time.Second,
		JitterFactor: 0.1,
	}
}

func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := math.Min(
		float64(lb.BaseDelay+lb.Increment*time.Duration(attempt-1)),
		float64(lb.MaxDelay),
	)
	return time.Duration(jittered(delay, lb.JitterFactor))
}

func (lb *LinearBackoff) Reset() {}

// ConstantBackoff waits the same delay before every attempt.
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

func (cb *ConstantBackoff) Reset() {}

// Wait blocks for the delay or until the context is cancelled.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
