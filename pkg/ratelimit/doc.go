// Package ratelimit provides request pacing for the crawler.
//
// This package implements multiple rate limiting algorithms to prevent
// overwhelming platform servers and avoid getting blocked.
//
// Available Implementations:
//
// Interval:
//   - Sleeps for a uniformly random duration in a [min, max] interval
//   - Used between dependent paginated requests, where jitter matters
//     more than throughput accounting
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Caps overall API call volume across a crawl session
//
// Interface:
//
// Volume limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait() - Block until a request is allowed
//   - Reset() - Reset the limiter state
//
// The Interval limiter implements the Sleeper interface instead: its
// Sleep(ctx) honors cancellation so a crawl can be stopped mid-delay.
//
// Usage:
//
//	// Jittered delay between page fetches
//	interval := ratelimit.NewInterval(time.Second, 3*time.Second)
//	if err := interval.Sleep(ctx); err != nil {
//	    return err // cancelled
//	}
//
//	// Token bucket: 60 requests per minute
//	limiter := ratelimit.NewTokenBucket(60, time.Minute)
//	if !limiter.Allow() {
//	    limiter.Wait()
//	}
package ratelimit
