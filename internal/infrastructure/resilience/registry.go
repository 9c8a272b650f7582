package resilience

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownBreaker is returned when a named breaker was never registered.
var ErrUnknownBreaker = errors.New("unknown circuit breaker")

// Registry owns one breaker per protected dependency. It is built by the
// composition root and passed to whoever needs a breaker; there is no
// package-level instance.
type Registry struct {
	defaults Settings
	logger   *zap.Logger

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers start from defaults. State
// changes are logged before defaults.OnStateChange runs.
func NewRegistry(defaults Settings, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		defaults: defaults,
		logger:   logger.Named("breaker"),
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b = New(name, r.observe(r.defaults))
	r.breakers[name] = b
	return b
}

// Register adds a breaker built with custom settings.
func (r *Registry) Register(name string, settings Settings) (*Breaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.breakers[name]; exists {
		return nil, fmt.Errorf("circuit breaker %q already registered", name)
	}
	b := New(name, r.observe(settings))
	r.breakers[name] = b
	return b, nil
}

// Stats returns snapshots of every breaker, sorted by name.
func (r *Registry) Stats() []Stats {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	stats := make([]Stats, 0, len(breakers))
	for _, b := range breakers {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Reset forces the named breaker closed.
func (r *Registry) Reset(name string) error {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBreaker, name)
	}

	b.Reset()
	r.logger.Info("Circuit breaker reset", zap.String("breaker", name))
	return nil
}

// ResetAll forces every breaker closed.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}

func (r *Registry) observe(settings Settings) Settings {
	next := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to State) {
		r.logger.Info("Circuit breaker state change",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		if next != nil {
			next(name, from, to)
		}
	}
	return settings
}
