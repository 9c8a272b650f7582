// Package llmtest provides test doubles for llm.Generator.
package llmtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/stretchr/testify/mock"
)

// Call is one recorded Generate invocation
type Call struct {
	Prompt string
	Params llm.SamplingParams
}

// Fake is a scripted Generator that records every call and the peak number
// of concurrent calls.
type Fake struct {
	// Respond produces the result for each call. Nil returns "".
	Respond func(ctx context.Context, n int, prompt string, params llm.SamplingParams) (string, error)
	// Delay holds each call open, to make concurrency observable
	Delay time.Duration

	mu    sync.Mutex
	calls []Call

	inFlight atomic.Int32
	peak     atomic.Int32
}

// Text returns a Fake that always answers text
func Text(text string) *Fake {
	return &Fake{
		Respond: func(context.Context, int, string, llm.SamplingParams) (string, error) {
			return text, nil
		},
	}
}

// Failing returns a Fake that always fails with err
func Failing(err error) *Fake {
	return &Fake{
		Respond: func(context.Context, int, string, llm.SamplingParams) (string, error) {
			return "", err
		},
	}
}

// Generate implements llm.Generator
func (f *Fake) Generate(ctx context.Context, prompt string, params llm.SamplingParams) (string, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, Call{Prompt: prompt, Params: params})
	f.mu.Unlock()

	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if cur <= old || f.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(ctx, n, prompt, params)
}

// Calls returns a copy of the recorded calls in arrival order
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Temperatures returns the sampled temperatures in arrival order
func (f *Fake) Temperatures() []float64 {
	calls := f.Calls()
	temps := make([]float64, len(calls))
	for i, c := range calls {
		temps[i] = c.Params.Temperature
	}
	return temps
}

// Peak returns the highest number of simultaneous calls observed
func (f *Fake) Peak() int {
	return int(f.peak.Load())
}

// Mock is a testify mock of llm.Generator
type Mock struct {
	mock.Mock
}

// Generate mocks the Generate method
func (m *Mock) Generate(ctx context.Context, prompt string, params llm.SamplingParams) (string, error) {
	args := m.Called(ctx, prompt, params)
	return args.String(0), args.Error(1)
}
