package ratelimit

import (
	"sync"
	"time"
)

// Limiter caps request volume over a window.
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed
	Wait()
	// Reset restores the limiter to its initial state
	Reset()
}

// TokenBucket allows up to capacity requests per refill period. The whole
// bucket refills at once when the period elapses, which matches the API's
// per-minute quota accounting.
type TokenBucket struct {
	mu           sync.Mutex
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
}

// NewTokenBucket creates a full bucket of the given capacity
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if time.Since(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = time.Now()
	}
	if tb.tokens == 0 {
		return false
	}
	tb.tokens--
	return true
}

func (tb *TokenBucket) Wait() {
	for !tb.Allow() {
		tb.mu.Lock()
		remaining := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if remaining <= 0 {
			remaining = 100 * time.Millisecond
		}
		time.Sleep(remaining)
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}
