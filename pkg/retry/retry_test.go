package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "mediacrawl/pkg/errors"
)

func TestExponentialBackoffDoublesAndCaps(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0, // deterministic
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := backoff.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: NextDelay = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoffJitterVariesDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		delays[backoff.NextDelay(2)] = true
	}
	if len(delays) < 2 {
		t.Error("jitter should spread delays across samples")
	}
}

func TestLinearBackoffIncrementsAndCaps(t *testing.T) {
	backoff := &LinearBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Increment:    100 * time.Millisecond,
		JitterFactor: 0,
	}

	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		3: 300 * time.Millisecond,
		5: 500 * time.Millisecond,
		6: 500 * time.Millisecond,
	} {
		if got := backoff.NextDelay(attempt); got != want {
			t.Errorf("attempt %d: NextDelay = %v, want %v", attempt, got, want)
		}
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     context.Background(),
	})
	if err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errors.New("persistent error")
	}

	err := Do(op, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     context.Background(),
	})
	if err == nil {
		t.Error("expected error when attempt budget is exhausted")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoNeverRetriesBlockedAccount(t *testing.T) {
	attempts := 0
	blocked := &errs.Error{
		Kind:    errs.KindAccountBlocked,
		Message: "account blocked",
		Code:    403,
	}
	op := func() error {
		attempts++
		return blocked
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	})
	if err != blocked {
		t.Errorf("expected the blocked error back unchanged, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("a blocked account must not be retried, got %d attempts", attempts)
	}
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 100 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     ctx,
	})
	if err == nil {
		t.Error("expected error after cancellation")
	}
	if attempts > 3 {
		t.Errorf("expected at most 3 attempts before cancellation, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	result, err := DoWithResult(op, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     context.Background(),
	})
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected %q, got %q", "success", result)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}
