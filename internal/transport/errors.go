package transport

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// Kind classifies a transport failure for the retry and fallback policy.
type Kind string

const (
	KindNetwork   Kind = "network_error" // catch-all, retryable
	KindAuth      Kind = "auth_error"    // credentials rejected, never retried
	KindRateLimit Kind = "rate_limit"    // slow-down signal, never retried, no fallback
	KindServer    Kind = "server_error"  // 5xx, retryable
)

// DefaultRetryAfterSeconds applies when a rate-limit response carries no
// usable hint.
const DefaultRetryAfterSeconds = 60

// APIError is a classified backend failure.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	RetryAfter int // seconds; rate-limit only
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (%s): %s", e.Kind, e.Message)
}

// apiErrorFromStatus maps an HTTP status to its error kind.
func apiErrorFromStatus(status int, message string, retryAfterHeader string) *APIError {
	e := &APIError{StatusCode: status, Message: message}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.RetryAfter = parseRetryAfter(retryAfterHeader, message)
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindNetwork
	}
	return e
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry[ -]?after[:\s]+(\d+)`)

// parseRetryAfter reads the hint from the Retry-After header, then from the
// failure message, then falls back to the default.
func parseRetryAfter(header, message string) int {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return secs
		}
	}
	if m := retryAfterPattern.FindStringSubmatch(message); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil && secs > 0 {
			return secs
		}
	}
	return DefaultRetryAfterSeconds
}

// Classify buckets any error into a Kind; unknown failures count as
// network errors.
func Classify(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	// Timeouts, cancellation, and anything unclassified behave like the
	// network dropped.
	return KindNetwork
}

// Retryable reports whether another attempt can help. Auth and rate-limit
// failures never retry.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindAuth, KindRateLimit:
		return false
	default:
		return true
	}
}

// RetryAfterSeconds extracts the rate-limit hint from err.
func RetryAfterSeconds(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return DefaultRetryAfterSeconds
}
