package llm

import (
	"context"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Protected wraps a Generator with a rate limiter, a retry policy and a
// circuit breaker. The retry loop sits outside the breaker: each attempt is
// counted by the breaker and an open circuit ends the loop immediately.
type Protected struct {
	next    Generator
	breaker *resilience.Breaker
	policy  resilience.Policy
	limiter *rate.Limiter
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewProtected creates a protected generator
func NewProtected(next Generator, breaker *resilience.Breaker, policy resilience.Policy, logger *zap.Logger) *Protected {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protected{
		next:    next,
		breaker: breaker,
		policy:  policy,
		logger:  logger.Named("retry").With(zap.String("dependency", breaker.Name())),
	}
}

// WithLimiter throttles outbound calls. Each attempt, retries included,
// waits for a token.
func (p *Protected) WithLimiter(limiter *rate.Limiter) *Protected {
	p.limiter = limiter
	return p
}

// WithMetrics records retries and call outcomes
func (p *Protected) WithMetrics(metrics *monitoring.Metrics) *Protected {
	p.metrics = metrics
	return p
}

// Breaker returns the breaker guarding the dependency
func (p *Protected) Breaker() *resilience.Breaker {
	return p.breaker
}

// Generate implements Generator
func (p *Protected) Generate(ctx context.Context, prompt string, params SamplingParams) (string, error) {
	dependency := p.breaker.Name()

	policy := p.policy
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.logger.Warn("Retrying generation",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Stringer("kind", resilience.KindOf(err)),
			zap.Error(err),
		)
		p.metrics.RecordRetry(dependency)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	start := time.Now()
	text, err := resilience.RetryValue(ctx, policy, func(ctx context.Context) (string, error) {
		if err := p.wait(ctx); err != nil {
			return "", err
		}
		return resilience.Call(ctx, p.breaker, func(ctx context.Context) (string, error) {
			return p.next.Generate(ctx, prompt, params)
		}, nil)
	})
	p.metrics.RecordGeneration(dependency, err, time.Since(start))

	return text, err
}

func (p *Protected) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The token cannot arrive before the deadline; waiting again will not help.
		return resilience.Permanent("rate limiter", err)
	}
	return nil
}
