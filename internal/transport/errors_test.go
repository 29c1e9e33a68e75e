package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestApiErrorFromStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected Kind
	}{
		{"unauthorized", 401, KindAuth},
		{"forbidden", 403, KindAuth},
		{"rate limited", 429, KindRateLimit},
		{"internal error", 500, KindServer},
		{"bad gateway", 502, KindServer},
		{"not found", 404, KindNetwork},
		{"bad request", 400, KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apiErrorFromStatus(tt.status, "boom", "")
			if err.Kind != tt.expected {
				t.Errorf("got kind %s, want %s", err.Kind, tt.expected)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		message  string
		expected int
	}{
		{"header wins", "120", "retry after 30", 120},
		{"message fallback", "", "too many requests, retry after 30 seconds", 30},
		{"message with dash", "", "Retry-After: 45", 45},
		{"default when absent", "", "too many requests", DefaultRetryAfterSeconds},
		{"garbage header falls through", "soon", "retry after 15", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header, tt.message); got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"api error keeps kind", &APIError{Kind: KindAuth}, KindAuth},
		{"wrapped api error", fmt.Errorf("calling chat: %w", &APIError{Kind: KindRateLimit}), KindRateLimit},
		{"deadline is network", context.DeadlineExceeded, KindNetwork},
		{"unknown is network", errors.New("weird"), KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(&APIError{Kind: KindAuth}) {
		t.Error("auth errors must not be retryable")
	}
	if Retryable(&APIError{Kind: KindRateLimit}) {
		t.Error("rate-limit errors must not be retryable")
	}
	if !Retryable(&APIError{Kind: KindServer}) {
		t.Error("server errors should be retryable")
	}
	if !Retryable(errors.New("connection refused")) {
		t.Error("unclassified errors should be retryable")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := RetryAfterSeconds(&APIError{Kind: KindRateLimit, RetryAfter: 90}); got != 90 {
		t.Errorf("got %d, want 90", got)
	}
	if got := RetryAfterSeconds(errors.New("nope")); got != DefaultRetryAfterSeconds {
		t.Errorf("got %d, want default", got)
	}
}
