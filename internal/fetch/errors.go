package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies fetch failures for the retry layer.
type ErrorKind int

// Fetch failure kinds.
const (
	KindTimeout ErrorKind = iota
	KindConnection
	KindHTTP
	KindBlocked
)

// String names the kind for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection_failed"
	case KindHTTP:
		return "http_error"
	case KindBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by a Client. StatusCode is zero
// for network-level failures.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsBlocked reports whether err is an explicit block/rate-limit signal
// (403 or 429), which routes through the evasion ladder instead of the
// generic retry path.
func IsBlocked(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindBlocked
}

// Kind extracts the error kind, defaulting to KindConnection for
// untyped errors.
func Kind(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindConnection
}

// StatusCode extracts the HTTP status from a typed fetch error, or zero.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

func classifyStatus(url string, status int) *Error {
	switch {
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return &Error{Kind: KindBlocked, URL: url, StatusCode: status}
	default:
		return &Error{Kind: KindHTTP, URL: url, StatusCode: status}
	}
}
