package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistryGetReturnsSameBreaker(t *testing.T) {
	r := NewRegistry(DefaultSettings(), nil)

	a := r.Get("llm")
	b := r.Get("llm")
	c := r.Get("evaluator")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestRegistryConcurrentGet(t *testing.T) {
	r := NewRegistry(DefaultSettings(), nil)

	var wg sync.WaitGroup
	results := make([]*Breaker, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Get("shared")
		}(i)
	}
	wg.Wait()

	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry(DefaultSettings(), nil)

	b, err := r.Register("custom", Settings{FailureThreshold: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Settings().FailureThreshold)
	assert.Same(t, b, r.Get("custom"))

	_, err = r.Register("custom", Settings{})
	assert.Error(t, err)
}

func TestRegistryStatsSorted(t *testing.T) {
	r := NewRegistry(DefaultSettings(), nil)
	r.Get("zeta")
	r.Get("alpha")
	r.Get("mid")

	stats := r.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, "alpha", stats[0].Name)
	assert.Equal(t, "mid", stats[1].Name)
	assert.Equal(t, "zeta", stats[2].Name)
	for _, s := range stats {
		assert.Equal(t, "closed", s.State)
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry(Settings{FailureThreshold: 1, RecoveryTimeout: time.Hour}, nil)
	b := r.Get("llm")
	_ = b.Execute(context.Background(), fail, nil)
	require.Equal(t, StateOpen, b.State())

	require.NoError(t, r.Reset("llm"))
	assert.Equal(t, StateClosed, b.State())

	err := r.Reset("missing")
	assert.ErrorIs(t, err, ErrUnknownBreaker)
}

func TestRegistryResetAll(t *testing.T) {
	r := NewRegistry(Settings{FailureThreshold: 1, RecoveryTimeout: time.Hour}, nil)
	for _, name := range []string{"a", "b"} {
		_ = r.Get(name).Execute(context.Background(), fail, nil)
	}

	r.ResetAll()

	for _, s := range r.Stats() {
		assert.Equal(t, "closed", s.State, s.Name)
	}
}

func TestRegistryLogsStateChanges(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var hooked []State
	r := NewRegistry(Settings{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour,
		OnStateChange: func(name string, from, to State) {
			hooked = append(hooked, to)
		},
	}, zap.New(core))

	_ = r.Get("llm").Execute(context.Background(), fail, nil)

	assert.Equal(t, []State{StateOpen}, hooked)

	entries := logs.FilterMessage("Circuit breaker state change").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "llm", fields["breaker"])
	assert.Equal(t, "closed", fields["from"])
	assert.Equal(t, "open", fields["to"])
}
