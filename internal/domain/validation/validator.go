package validation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/fanout"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/id"
	"go.uber.org/zap"
)

// ErrInvalidRequest is returned for requests that cannot be simulated
var ErrInvalidRequest = errors.New("invalid validation request")

// Request describes one validation run. Zero NumSimulations and nil
// MinConsistency fall back to the validator's options.
type Request struct {
	Query          string         `json:"query"`
	Context        map[string]any `json:"context,omitempty"`
	NumSimulations int            `json:"num_simulations,omitempty"`
	MinConsistency *float64       `json:"min_consistency,omitempty"`
}

func (r Request) validate(maxSimulations int) error {
	switch {
	case strings.TrimSpace(r.Query) == "":
		return fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	case r.NumSimulations < 0:
		return fmt.Errorf("%w: num_simulations must not be negative", ErrInvalidRequest)
	case r.NumSimulations > maxSimulations:
		return fmt.Errorf("%w: num_simulations must not exceed %d", ErrInvalidRequest, maxSimulations)
	case r.MinConsistency != nil && (*r.MinConsistency < 0 || *r.MinConsistency > 1):
		return fmt.Errorf("%w: min_consistency must be within [0, 1]", ErrInvalidRequest)
	}
	return nil
}

// Result is the outcome of one validation run
type Result struct {
	RunID                id.RunID `json:"run_id"`
	Query                string   `json:"query"`
	NumSimulations       int      `json:"num_simulations"`
	RequestedSimulations int      `json:"requested_simulations"`
	ConsistencyScore     float64  `json:"consistency_score"`
	ConfidenceLevel      float64  `json:"confidence_level"`
	Validated            bool     `json:"validated"`
	MinConsistency       float64  `json:"min_consistency"`
	ReasoningVariance    float64  `json:"reasoning_variance"`
	ExecutionTimeMs      int64    `json:"execution_time_ms"`
	SimulationResults    []string `json:"simulation_results"`
}

// Summary renders the result on one line
func (r *Result) Summary() string {
	verdict := "not validated"
	if r.Validated {
		verdict = "validated"
	}
	return fmt.Sprintf("%s: consistency=%.2f (min %.2f) confidence=%.2f variance=%.2f simulations=%d/%d",
		verdict,
		r.ConsistencyScore,
		r.MinConsistency,
		r.ConfidenceLevel,
		r.ReasoningVariance,
		r.NumSimulations,
		r.RequestedSimulations,
	)
}

// Validator runs Monte Carlo validation over a generator
type Validator struct {
	gen     llm.Generator
	opts    Options
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewValidator creates a validator over gen
func NewValidator(gen llm.Generator, opts Options, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		gen:    gen,
		opts:   opts.withDefaults(),
		logger: logger.Named("validation"),
	}
}

// WithMetrics records validation outcomes
func (v *Validator) WithMetrics(metrics *monitoring.Metrics) *Validator {
	v.metrics = metrics
	return v
}

// WithTracer records a span per Validate call
func (v *Validator) WithTracer(tracer *tracing.Tracer) *Validator {
	v.tracer = tracer
	return v
}

// Options returns the effective options
func (v *Validator) Options() Options {
	return v.opts
}

// Validate runs the simulations for req and scores their agreement. Failed
// or empty simulations are dropped; if none succeed the degenerate result is
// returned without error.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(v.opts.MaxSimulations); err != nil {
		return nil, err
	}

	numSimulations := req.NumSimulations
	if numSimulations == 0 {
		numSimulations = v.opts.NumSimulations
	}
	minConsistency := v.opts.MinConsistency
	if req.MinConsistency != nil {
		minConsistency = *req.MinConsistency
	}

	start := time.Now()
	timer := monitoring.NewTimer(v.metrics, "validation", "validate")
	span, ctx := v.tracer.StartSpan(ctx, "validation.validate")
	defer func() {
		span.Finish()
		v.tracer.Submit(span)
	}()

	result := &Result{
		RunID:                id.NewRunID(),
		Query:                req.Query,
		RequestedSimulations: numSimulations,
		MinConsistency:       minConsistency,
	}
	span.SetTag("run_id", result.RunID.String())

	results := v.simulate(ctx, buildPrompt(req.Query, req.Context), numSimulations)
	result.NumSimulations = len(results)

	if len(results) == 0 {
		result.ReasoningVariance = 1
		result.SimulationResults = []string{}
	} else {
		result.ConsistencyScore = CalculateConsistency(results)
		result.ConfidenceLevel = CalculateConfidence(result.ConsistencyScore, len(results))
		result.ReasoningVariance = CalculateVariance(results)
		result.Validated = result.ConsistencyScore >= minConsistency
		result.SimulationResults = results[:min(len(results), v.opts.SampleSize)]
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	v.metrics.RecordValidation(result.Validated, result.ConsistencyScore, len(results), numSimulations-len(results))
	span.SetInt("simulations", len(results))
	span.SetFloat("consistency", result.ConsistencyScore)

	if len(results) == 0 {
		timer.Stop("degraded")
		v.logger.Warn("Validation degraded: no simulation succeeded",
			zap.String("run_id", result.RunID.String()),
			zap.Int("requested", numSimulations),
		)
		return result, nil
	}

	timer.Stop("success")
	v.logger.Info("Validation completed",
		zap.String("run_id", result.RunID.String()),
		zap.String("summary", result.Summary()),
	)
	return result, nil
}

func (v *Validator) simulate(ctx context.Context, prompt string, n int) []string {
	outcomes := fanout.Collect(ctx, n, v.opts.MaxConcurrent, func(ctx context.Context, i int) (string, error) {
		text, err := v.gen.Generate(ctx, prompt, llm.SamplingParams{
			Temperature: v.opts.Temperature,
			MaxTokens:   v.opts.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		if llm.IsEmpty(text) {
			return "", llm.ErrEmptyResponse
		}
		return text, nil
	})

	failed := fanout.Errors(outcomes)
	if len(failed) > 0 {
		v.logger.Debug("Dropped failed simulations",
			zap.Int("failed", len(failed)),
			zap.Error(failed[0]),
		)
	}
	return fanout.Values(outcomes)
}

func buildPrompt(query string, qctx map[string]any) string {
	var b strings.Builder

	b.WriteString("Answer the following question. Reply with the answer only.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", query)

	if len(qctx) > 0 {
		keys := make([]string, 0, len(qctx))
		for k := range qctx {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\nContext:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, qctx[k])
		}
	}
	return b.String()
}
