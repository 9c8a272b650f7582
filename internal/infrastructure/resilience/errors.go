package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrCircuitOpen is matched by every rejection from an open breaker.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrCallTimeout is matched by calls that exceeded the breaker's call timeout.
	ErrCallTimeout = errors.New("call timed out")
	// ErrPanic wraps a panic recovered from a protected call.
	ErrPanic = errors.New("protected call panicked")
)

// Kind classifies a remote failure for retry and breaker decisions
type Kind int

const (
	// KindUnknown is an unclassified error. Retriable by default.
	KindUnknown Kind = iota
	// KindTransient covers network faults, throttling and 5xx responses.
	KindTransient
	// KindPermanent covers bad input, auth failures and other 4xx responses.
	KindPermanent
	// KindCircuitOpen means the call was never attempted.
	KindCircuitOpen
	// KindTimeout means the call exceeded its deadline.
	KindTimeout
	// KindCanceled means the caller gave up or its own deadline passed;
	// not a dependency failure.
	KindCanceled
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCircuitOpen:
		return "circuit_open"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// RemoteError annotates a failed remote call with its classification
type RemoteError struct {
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Transient marks err as a retriable remote failure.
func Transient(op string, err error) error {
	return &RemoteError{Kind: KindTransient, Op: op, Err: err}
}

// Permanent marks err as a failure that must never be retried.
func Permanent(op string, err error) error {
	return &RemoteError{Kind: KindPermanent, Op: op, Err: err}
}

// FromStatus classifies err by the HTTP status code the remote returned.
// 408, 429 and 5xx are transient; every other 4xx is permanent.
func FromStatus(op string, status int, err error) error {
	kind := KindTransient
	if status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		kind = KindPermanent
	}
	return &RemoteError{Kind: kind, Op: op, StatusCode: status, Err: err}
}

// CircuitOpenError is returned when a breaker rejects a call without running it.
type CircuitOpenError struct {
	Name    string
	RetryAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open until %s", e.Name, e.RetryAt.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrCircuitOpen) hold.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// KindOf classifies err. A nil error has KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrCircuitOpen) {
		return KindCircuitOpen
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	switch {
	case errors.Is(err, ErrCallTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindUnknown
}

// IsRetriable is the default retry classifier. Every error is retriable
// except permanent failures, open circuits and caller cancellation.
func IsRetriable(err error) bool {
	switch KindOf(err) {
	case KindPermanent, KindCircuitOpen, KindCanceled:
		return false
	default:
		return err != nil
	}
}
