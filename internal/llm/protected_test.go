package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func quickPolicy(attempts int) resilience.Policy {
	return resilience.Policy{
		MaxAttempts:     attempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func TestProtectedRetriesTransientFailures(t *testing.T) {
	fake := &llmtest.Fake{
		Respond: func(_ context.Context, n int, _ string, _ llm.SamplingParams) (string, error) {
			if n < 2 {
				return "", resilience.Transient("fake", errors.New("flaky"))
			}
			return "answer", nil
		},
	}
	breaker := resilience.New("llm", resilience.Settings{FailureThreshold: 5})
	metrics := monitoring.NewMetrics(nil)

	g := llm.NewProtected(fake, breaker, quickPolicy(3), nil).WithMetrics(metrics)

	text, err := g.Generate(context.Background(), "q", llm.SamplingParams{Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Len(t, fake.Calls(), 3)
	assert.Equal(t, resilience.StateClosed, breaker.State())
}

func TestProtectedDoesNotRetryPermanent(t *testing.T) {
	m := new(llmtest.Mock)
	m.On("Generate", mock.Anything, "q", mock.Anything).
		Return("", resilience.Permanent("fake", errors.New("bad request"))).
		Once()

	breaker := resilience.New("llm", resilience.Settings{})
	g := llm.NewProtected(m, breaker, quickPolicy(5), nil)

	_, err := g.Generate(context.Background(), "q", llm.SamplingParams{})
	assert.Equal(t, resilience.KindPermanent, resilience.KindOf(err))
	m.AssertNumberOfCalls(t, "Generate", 1)
}

func TestProtectedOpenCircuitEndsRetries(t *testing.T) {
	fake := llmtest.Failing(resilience.Transient("fake", errors.New("down")))
	breaker := resilience.New("llm", resilience.Settings{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	var retries []int
	policy := quickPolicy(10)
	policy.OnRetry = func(attempt int, _ time.Duration, _ error) {
		retries = append(retries, attempt)
	}

	g := llm.NewProtected(fake, breaker, policy, nil)

	_, err := g.Generate(context.Background(), "q", llm.SamplingParams{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Len(t, fake.Calls(), 2)
	assert.Equal(t, []int{0, 1}, retries)

	// Later callers fail fast without touching the backend.
	_, err = g.Generate(context.Background(), "q", llm.SamplingParams{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Len(t, fake.Calls(), 2)
}

func TestProtectedLimiterHonoursContext(t *testing.T) {
	fake := llmtest.Text("ok")
	breaker := resilience.New("llm", resilience.Settings{})

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	g := llm.NewProtected(fake, breaker, quickPolicy(3), nil).WithLimiter(limiter)

	_, err := g.Generate(context.Background(), "first", llm.SamplingParams{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Generate(ctx, "second", llm.SamplingParams{})
	require.Error(t, err)
	assert.Equal(t, resilience.KindPermanent, resilience.KindOf(err), "token cannot arrive before the deadline")
	assert.Len(t, fake.Calls(), 1)
	assert.Equal(t, resilience.StateClosed, breaker.State())
}

func TestProtectedPassesParams(t *testing.T) {
	fake := llmtest.Text("ok")
	g := llm.NewProtected(fake, resilience.New("llm", resilience.Settings{}), quickPolicy(0), nil)

	_, err := g.Generate(context.Background(), "prompt", llm.SamplingParams{Temperature: 0.8, MaxTokens: 99})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "prompt", calls[0].Prompt)
	assert.Equal(t, llm.SamplingParams{Temperature: 0.8, MaxTokens: 99}, calls[0].Params)
	assert.Same(t, g.Breaker(), g.Breaker())
}
