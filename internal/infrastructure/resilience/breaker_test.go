package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

func succeed(context.Context) error { return nil }
func fail(context.Context) error    { return errBoom }

func newTestBreaker(clock *fakeClock, failures, successes int) *Breaker {
	return New("test", Settings{
		FailureThreshold: failures,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: successes,
		CallTimeout:      time.Second,
		Now:              clock.Now,
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		threshold     int
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			threshold:     3,
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			threshold:     3,
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "success in between keeps it closed",
			threshold:     3,
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
		{
			name:          "threshold of one trips immediately",
			threshold:     1,
			requests:      []bool{false},
			expectedState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := newTestBreaker(newFakeClock(), tt.threshold, 1)

			for _, success := range tt.requests {
				fn := fail
				if success {
					fn = succeed
				}
				_ = breaker.Execute(context.Background(), fn, nil)
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerRejectsWithoutInvoking(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 3, 1)

	for i := 0; i < 3; i++ {
		err := breaker.Execute(context.Background(), fail, nil)
		require.ErrorIs(t, err, errBoom)
	}
	require.Equal(t, StateOpen, breaker.State())

	var invoked atomic.Bool
	err := breaker.Execute(context.Background(), func(context.Context) error {
		invoked.Store(true)
		return nil
	}, nil)

	assert.False(t, invoked.Load(), "fn must not run while open")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, KindCircuitOpen, KindOf(err))

	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "test", openErr.Name)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 3, 1)

	_ = breaker.Execute(context.Background(), fail, nil)
	_ = breaker.Execute(context.Background(), fail, nil)
	assert.Equal(t, 2, breaker.Stats().FailureCount)

	require.NoError(t, breaker.Execute(context.Background(), succeed, nil))
	assert.Equal(t, 0, breaker.Stats().FailureCount)

	_ = breaker.Execute(context.Background(), fail, nil)
	_ = breaker.Execute(context.Background(), fail, nil)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerRecovery(t *testing.T) {
	clock := newFakeClock()
	breaker := newTestBreaker(clock, 2, 2)

	_ = breaker.Execute(context.Background(), fail, nil)
	_ = breaker.Execute(context.Background(), fail, nil)
	require.Equal(t, StateOpen, breaker.State())

	clock.Advance(59 * time.Second)
	assert.Equal(t, StateOpen, breaker.State(), "must stay open before the recovery timeout")

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, breaker.Execute(context.Background(), succeed, nil))
	assert.Equal(t, StateHalfOpen, breaker.State())
	assert.Equal(t, 1, breaker.Stats().SuccessCount)

	require.NoError(t, breaker.Execute(context.Background(), succeed, nil))
	assert.Equal(t, StateClosed, breaker.State())

	stats := breaker.Stats()
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, 0, stats.SuccessCount)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	breaker := newTestBreaker(clock, 1, 3)

	_ = breaker.Execute(context.Background(), fail, nil)
	clock.Advance(time.Minute)

	require.NoError(t, breaker.Execute(context.Background(), succeed, nil))
	require.Equal(t, StateHalfOpen, breaker.State())

	err := breaker.Execute(context.Background(), fail, nil)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, breaker.State())
	assert.Equal(t, 0, breaker.Stats().SuccessCount)

	// The recovery window restarts from the half-open failure.
	clock.Advance(30 * time.Second)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerFallback(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 1, 1)
	_ = breaker.Execute(context.Background(), fail, nil)

	var invoked atomic.Bool
	result, err := Call(context.Background(), breaker,
		func(context.Context) (string, error) {
			invoked.Store(true)
			return "live", nil
		},
		func(context.Context) (string, error) {
			return "cached", nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "cached", result)
	assert.False(t, invoked.Load())
}

func TestBreakerFallbackNotUsedWhenClosed(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 3, 1)

	result, err := Call(context.Background(), breaker,
		func(context.Context) (int, error) { return 0, errBoom },
		func(context.Context) (int, error) { return 42, nil },
	)

	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, result)
}

func TestBreakerCallTimeout(t *testing.T) {
	breaker := New("slow", Settings{
		FailureThreshold: 1,
		CallTimeout:      20 * time.Millisecond,
	})

	start := time.Now()
	err := breaker.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, ErrCallTimeout)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, StateOpen, breaker.State(), "timeout counts as a failure")
}

func TestBreakerCallerCancellationNotCounted(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return ctx.Err()
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, 0, breaker.Stats().FailureCount)
}

func TestBreakerCallerDeadlineNotCounted(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{
			name: "call outlives caller deadline",
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				time.Sleep(5 * time.Millisecond)
				return nil
			},
		},
		{
			name: "call returns deadline error",
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", Settings{FailureThreshold: 2, CallTimeout: time.Second})

			for i := 0; i < 2; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
				err := breaker.Execute(ctx, tt.fn, nil)
				cancel()

				assert.ErrorIs(t, err, context.DeadlineExceeded)
				assert.NotErrorIs(t, err, ErrCallTimeout)
				assert.Equal(t, KindCanceled, KindOf(err))
			}

			assert.Equal(t, StateClosed, breaker.State())
			assert.Equal(t, 0, breaker.Stats().FailureCount)
		})
	}
}

func TestBreakerRecoversPanics(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 1, 1)

	err := breaker.Execute(context.Background(), func(context.Context) error {
		panic("kaboom")
	}, nil)

	assert.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerReset(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 1, 1)
	_ = breaker.Execute(context.Background(), fail, nil)
	require.Equal(t, StateOpen, breaker.State())

	breaker.Reset()

	stats := breaker.Stats()
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, 0, stats.SuccessCount)
	assert.Nil(t, stats.LastFailureTime)
	assert.NoError(t, breaker.Execute(context.Background(), succeed, nil))
}

func TestBreakerStats(t *testing.T) {
	clock := newFakeClock()
	breaker := newTestBreaker(clock, 5, 1)

	_ = breaker.Execute(context.Background(), fail, nil)

	stats := breaker.Stats()
	assert.Equal(t, "test", stats.Name)
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 1, stats.FailureCount)
	require.NotNil(t, stats.LastFailureTime)
	assert.True(t, clock.Now().Equal(*stats.LastFailureTime))
}

func TestBreakerCallbacks(t *testing.T) {
	clock := newFakeClock()

	var (
		mu          sync.Mutex
		transitions []string
		outcomes    []Outcome
		created     []State
	)

	breaker := New("test", Settings{
		FailureThreshold: 2,
		RecoveryTimeout:  10 * time.Second,
		SuccessThreshold: 1,
		Now:              clock.Now,
		OnCreate: func(name string, state State) {
			created = append(created, state)
		},
		OnStateChange: func(name string, from State, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, from.String()+"->"+to.String())
		},
		OnOutcome: func(name string, outcome Outcome) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, outcome)
		},
	})

	_ = breaker.Execute(context.Background(), fail, nil)
	_ = breaker.Execute(context.Background(), fail, nil)
	_ = breaker.Execute(context.Background(), succeed, nil)
	clock.Advance(10 * time.Second)
	_ = breaker.Execute(context.Background(), succeed, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateClosed}, created)
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
	assert.Equal(t, []Outcome{OutcomeFailure, OutcomeFailure, OutcomeRejected, OutcomeSuccess}, outcomes)
}

func TestBreakerLockNotHeldDuringCall(t *testing.T) {
	breaker := New("test", Settings{CallTimeout: time.Second})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- breaker.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		}, nil)
	}()

	<-started
	stateRead := make(chan State, 1)
	go func() { stateRead <- breaker.State() }()

	select {
	case state := <-stateRead:
		assert.Equal(t, StateClosed, state)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("State() blocked while a protected call was running")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestBreakerStaleOutcomeIgnored(t *testing.T) {
	breaker := newTestBreaker(newFakeClock(), 1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- breaker.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return errBoom
		}, nil)
	}()

	<-started
	breaker.Reset()
	close(release)
	require.ErrorIs(t, <-done, errBoom)

	assert.Equal(t, StateClosed, breaker.State(), "failure admitted before Reset must not count")
}

func TestBreakerDefaults(t *testing.T) {
	settings := New("defaults", Settings{}).Settings()

	assert.Equal(t, 5, settings.FailureThreshold)
	assert.Equal(t, 60*time.Second, settings.RecoveryTimeout)
	assert.Equal(t, 2, settings.SuccessThreshold)
	assert.Equal(t, 30*time.Second, settings.CallTimeout)
}
