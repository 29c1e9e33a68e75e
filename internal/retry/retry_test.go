package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},  // base * 2^0 = 100ms
		{1, 200 * time.Millisecond},  // base * 2^1 = 200ms
		{2, 400 * time.Millisecond},  // base * 2^2 = 400ms
		{3, 800 * time.Millisecond},  // base * 2^3 = 800ms
		{4, 1600 * time.Millisecond}, // base * 2^4 = 1600ms
	}

	for _, tt := range tests {
		result := ExponentialBackoff(tt.attempt, base)
		if result != tt.expected {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, result, tt.expected)
		}
	}
}

func TestPolicyDelayConstant(t *testing.T) {
	p := Policy{MaxRetries: 3, Base: time.Second, Exponential: false}

	for attempt := 0; attempt < 4; attempt++ {
		if got := p.Delay(attempt); got != time.Second {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, time.Second)
		}
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 2, Base: time.Millisecond}

	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	p := Policy{MaxRetries: 5, Base: time.Millisecond}

	err := Do(context.Background(), p, func(err error) bool { return !errors.Is(err, fatal) }, func(ctx context.Context) error {
		attempts++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("got %v, want fatal error", err)
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1", attempts)
	}
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 2, Base: time.Millisecond}

	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		attempts++
		return errors.New("still down")
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxRetries: 3, Base: time.Hour}

	err := Do(ctx, p, nil, func(ctx context.Context) error {
		return errors.New("down")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
