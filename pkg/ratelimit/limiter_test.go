package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketExhaustsAndRefills(t *testing.T) {
	tb := NewTokenBucket(5, time.Second)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Fatalf("token %d should be available", i+1)
		}
	}

	if tb.Allow() {
		t.Error("bucket should be empty after capacity requests")
	}

	time.Sleep(time.Second + 100*time.Millisecond)
	if !tb.Allow() {
		t.Error("bucket should refill after the period elapses")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(2, time.Minute)
	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	tb.Reset()
	if !tb.Allow() {
		t.Error("reset should restore full capacity")
	}
}

func TestTokenBucketWaitBlocksUntilRefill(t *testing.T) {
	tb := NewTokenBucket(1, 200*time.Millisecond)
	tb.Allow()

	start := time.Now()
	tb.Wait()
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Wait returned after %v, expected to block until refill", elapsed)
	}
}
