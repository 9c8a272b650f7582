package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Jitter bounds. The factor is drawn uniformly from [JitterMin, JitterMax).
// These are tunable policy values, not structural invariants.
const (
	JitterMin = 0.5
	JitterMax = 1.5
)

// Policy computes backoff delays and retry eligibility. It is an immutable
// value and safe to share between goroutines.
type Policy struct {
	// MaxAttempts is the number of retries allowed after the initial call
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the computed delay before jitter. Zero means no cap.
	MaxDelay time.Duration
	// ExponentialBase is the growth factor between retries
	ExponentialBase float64
	// Jitter multiplies each delay by a random factor in [JitterMin, JitterMax)
	Jitter bool
	// Retriable reports whether an error may be retried. Nil uses IsRetriable.
	Retriable func(error) bool
	// OnRetry observes each scheduled retry
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns the policy used for outbound generation calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// CalculateDelay returns min(InitialDelay * ExponentialBase^attempt, MaxDelay),
// jittered when enabled. attempt is 0 for the first retry.
func (p Policy) CalculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(p.InitialDelay) * math.Pow(p.ExponentialBase, float64(attempt))
	if p.MaxDelay > 0 && (delay > float64(p.MaxDelay) || math.IsInf(delay, 0) || math.IsNaN(delay)) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		delay *= JitterMin + rand.Float64()*(JitterMax-JitterMin) // #nosec G404 -- non-cryptographic jitter is appropriate here
	}

	return time.Duration(delay)
}

// ShouldRetry reports whether err may be retried after attempt retries have
// already been made.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	// An open circuit is never retried, whatever the classifier says.
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if p.Retriable != nil {
		return p.Retriable(err)
	}
	return IsRetriable(err)
}

// RetryError annotates the last concrete error of a retry loop with the
// number of calls made. It unwraps to that error, and to the context error
// when the loop was aborted by cancellation.
type RetryError struct {
	Attempts int
	Err      error
	Aborted  error
}

func (e *RetryError) Error() string {
	if e.Aborted != nil {
		return fmt.Sprintf("aborted after %d attempt(s) (%v): %v", e.Attempts, e.Aborted, e.Err)
	}
	return fmt.Sprintf("failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() []error {
	if e.Aborted != nil {
		return []error{e.Err, e.Aborted}
	}
	return []error{e.Err}
}

// Retry invokes fn until it succeeds, the policy is exhausted, or an error is
// not retriable. A first call that is not retried returns its error unwrapped.
func Retry(ctx context.Context, p Policy, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !p.ShouldRetry(err, attempt) {
			if attempt == 0 {
				return err
			}
			return &RetryError{Attempts: attempt + 1, Err: err}
		}

		delay := p.CalculateDelay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &RetryError{Attempts: attempt + 1, Err: err, Aborted: ctx.Err()}
		case <-timer.C:
		}
	}
}

// RetryValue is Retry for calls that produce a value.
func RetryValue[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := Retry(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// Do retries fn through breaker b. The breaker sits inside the retry loop, so
// every attempt is counted by the breaker and an open circuit ends the loop
// at once.
func Do[T any](ctx context.Context, p Policy, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	return RetryValue(ctx, p, func(ctx context.Context) (T, error) {
		return Call(ctx, b, fn, nil)
	})
}
