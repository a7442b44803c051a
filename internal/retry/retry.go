package retry

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/mergertracker/dealcrawl/internal/fetch"
)

// Class partitions fetch failures by how the caller should react.
type Class int

const (
	// Retryable failures are transient; retry with backoff.
	Retryable Class = iota
	// Blocked failures mean the site is refusing this identity; escalate
	// evasion before retrying.
	Blocked
	// Terminal failures will not improve on retry.
	Terminal
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Blocked:
		return "blocked"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// retryableStatuses mirrors the set of HTTP statuses worth retrying.
var retryableStatuses = map[int]struct{}{
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
}

// Classify maps a fetch error to a retry class.
func Classify(err error) Class {
	if err == nil {
		return Terminal
	}
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return Terminal
	}
	switch fe.Kind {
	case fetch.KindTimeout, fetch.KindConnection:
		return Retryable
	case fetch.KindBlocked:
		return Blocked
	case fetch.KindHTTP:
		if _, ok := retryableStatuses[fe.StatusCode]; ok {
			return Retryable
		}
		return Terminal
	default:
		return Terminal
	}
}

// Policy computes exponential backoff with a hard delay cap.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewPolicy fills zero fields with defaults.
func NewPolicy(maxAttempts int, base, max time.Duration) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if max <= 0 {
		max = time.Minute
	}
	return Policy{MaxAttempts: maxAttempts, BaseDelay: base, MaxDelay: max}
}

// ShouldRetry reports whether another attempt is allowed after the given
// number of completed attempts.
func (p Policy) ShouldRetry(attempts int) bool {
	return attempts < p.MaxAttempts
}

// NextDelay returns the backoff before attempt number attempt (0-based
// over completed attempts), doubling from BaseDelay up to MaxDelay.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
