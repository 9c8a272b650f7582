package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Outcome labels how a single Execute call ended
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeRejected Outcome = "rejected"
	OutcomeFallback Outcome = "fallback"
	OutcomeCanceled Outcome = "canceled"
)

// Settings configures the circuit breaker behavior
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens a closed breaker
	FailureThreshold int
	// RecoveryTimeout is how long the breaker stays open after the last failure
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of half-open successes that closes the breaker
	SuccessThreshold int
	// CallTimeout bounds every admitted call
	CallTimeout time.Duration
	// OnCreate is called once by New with the initial state
	OnCreate func(name string, state State)
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
	// OnOutcome is called once per Execute with the way it ended
	OnOutcome func(name string, outcome Outcome)
	// Now overrides the clock, for tests
	Now func() time.Time
}

// DefaultSettings returns the settings used for zero-valued fields.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
		CallTimeout:      30 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = def.FailureThreshold
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = def.RecoveryTimeout
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = def.SuccessThreshold
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = def.CallTimeout
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Stats is a read-only snapshot of a breaker
type Stats struct {
	Name            string     `json:"name"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
}

// Breaker implements the circuit breaker pattern.
//
// State is guarded by mu, which is never held while the protected call runs.
// Every transition bumps generation so outcomes of calls admitted under an
// earlier state are ignored.
type Breaker struct {
	name     string
	settings Settings

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	generation      uint64
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	b := &Breaker{
		name:     name,
		settings: settings.withDefaults(),
		state:    StateClosed,
	}
	if b.settings.OnCreate != nil {
		b.settings.OnCreate(name, b.state)
	}
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// Settings returns the effective settings
func (b *Breaker) Settings() Settings {
	return b.settings
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(b.settings.Now())
	return state
}

// Stats returns a snapshot of the breaker
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(b.settings.Now())
	stats := Stats{
		Name:         b.name,
		State:        state.String(),
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
	}
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		stats.LastFailureTime = &t
	}
	return stats
}

// Reset forces the breaker closed with zeroed counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setState(StateClosed)
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
	b.generation++
}

// Execute runs fn if the breaker admits it. When the breaker is open, fallback
// (if non-nil) runs instead and its error is returned; otherwise a
// *CircuitOpenError is returned without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error, fallback func(context.Context) error) error {
	generation, err := b.beforeCall()
	if err != nil {
		if fallback != nil {
			b.report(OutcomeFallback)
			return fallback(ctx)
		}
		b.report(OutcomeRejected)
		return err
	}

	err = b.run(ctx, fn)
	b.afterCall(generation, err)
	return err
}

// run executes fn under the call timeout. fn runs in its own goroutine so a
// call that ignores its context still cannot hold the caller past the timeout.
func (b *Breaker) run(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, b.settings.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return b.abortedError(err)
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return b.timeoutError()
		}
		return err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return b.abortedError(err)
		}
		return b.timeoutError()
	}
}

// abortedError marks a call ended by the caller's own context, whether
// canceled or past its deadline. It never counts against the dependency.
func (b *Breaker) abortedError(err error) error {
	return &RemoteError{Kind: KindCanceled, Op: b.name, Err: err}
}

func (b *Breaker) timeoutError() error {
	return &RemoteError{
		Kind: KindTimeout,
		Op:   b.name,
		Err:  fmt.Errorf("%w after %s", ErrCallTimeout, b.settings.CallTimeout),
	}
}

// beforeCall is called before a call is executed
func (b *Breaker) beforeCall() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, generation := b.currentState(b.settings.Now())
	if state == StateOpen {
		return generation, &CircuitOpenError{
			Name:    b.name,
			RetryAt: b.lastFailureTime.Add(b.settings.RecoveryTimeout),
		}
	}
	return generation, nil
}

// afterCall records the outcome of an admitted call
func (b *Breaker) afterCall(before uint64, err error) {
	outcome := OutcomeSuccess
	switch kind := KindOf(err); {
	case err == nil:
	case kind == KindCanceled:
		outcome = OutcomeCanceled
	case kind == KindTimeout:
		outcome = OutcomeTimeout
	default:
		outcome = OutcomeFailure
	}
	b.report(outcome)

	if outcome == OutcomeCanceled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	state, generation := b.currentState(now)
	if generation != before {
		return
	}

	if err == nil {
		b.onSuccess(state)
	} else {
		b.onFailure(state, now)
	}
}

// onSuccess handles successful calls
func (b *Breaker) onSuccess(state State) {
	switch state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.settings.SuccessThreshold {
			b.setState(StateClosed)
		}
	}
}

// onFailure handles failed calls
func (b *Breaker) onFailure(state State, now time.Time) {
	b.lastFailureTime = now
	switch state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.settings.FailureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// currentState applies the lazy open -> half-open edge and returns the state
// and generation. Must be called with mu held.
func (b *Breaker) currentState(now time.Time) (State, uint64) {
	if b.state == StateOpen && now.Sub(b.lastFailureTime) >= b.settings.RecoveryTimeout {
		b.setState(StateHalfOpen)
	}
	return b.state, b.generation
}

// setState changes the state of the circuit breaker and resets its counters
func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.failureCount = 0
	b.successCount = 0
	b.generation++

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) report(outcome Outcome) {
	if b.settings.OnOutcome != nil {
		b.settings.OnOutcome(b.name, outcome)
	}
}

// Call runs fn through the breaker and returns its typed result. fallback may be nil.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error), fallback func(context.Context) (T, error)) (T, error) {
	var (
		mu         sync.Mutex
		value      T
		fellBack   bool
		fallbackTo T
	)

	var fb func(context.Context) error
	if fallback != nil {
		fb = func(ctx context.Context) error {
			v, err := fallback(ctx)
			fallbackTo, fellBack = v, true
			return err
		}
	}

	// On timeout fn's goroutine may still write value after Execute returns;
	// value is only read when fn finished normally.
	err := b.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		mu.Lock()
		value = v
		mu.Unlock()
		return err
	}, fb)

	if fellBack {
		return fallbackTo, err
	}
	if err != nil {
		var zero T
		return zero, err
	}

	mu.Lock()
	defer mu.Unlock()
	return value, nil
}
