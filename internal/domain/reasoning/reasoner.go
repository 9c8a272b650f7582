package reasoning

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/id"
	"go.uber.org/zap"
)

var (
	// ErrEmptyQuery is returned for a blank query
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrNoPaths is returned alongside a degraded result when every path
	// generation failed
	ErrNoPaths = errors.New("no reasoning paths could be generated")
)

// Reasoner generates, evaluates and selects reasoning paths for a query
type Reasoner struct {
	generator *PathGenerator
	evaluator *PathEvaluator
	opts      Options
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
}

// NewReasoner creates a reasoner whose generator and evaluator share gen
func NewReasoner(gen llm.Generator, opts Options, logger *zap.Logger) *Reasoner {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Reasoner{
		generator: NewPathGenerator(gen, opts, logger),
		evaluator: NewPathEvaluator(gen, opts, logger),
		opts:      opts,
		logger:    logger.Named("reasoning"),
	}
}

// WithMetrics records path counts and timings
func (r *Reasoner) WithMetrics(metrics *monitoring.Metrics) *Reasoner {
	r.metrics = metrics
	return r
}

// WithTracer records a span per Reason call
func (r *Reasoner) WithTracer(tracer *tracing.Tracer) *Reasoner {
	r.tracer = tracer
	return r
}

// Options returns the effective options
func (r *Reasoner) Options() Options {
	return r.opts
}

// Reason answers query through multi-path reasoning. When no path survives
// generation the partially filled result is returned with ErrNoPaths.
func (r *Reasoner) Reason(ctx context.Context, query string, qctx map[string]any) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	timer := monitoring.NewTimer(r.metrics, "reasoning", "reason")
	span, ctx := r.tracer.StartSpan(ctx, "reasoning.reason")
	defer func() {
		span.Finish()
		r.tracer.Submit(span)
	}()

	result := &Result{
		RunID:               id.NewRunID(),
		Query:               query,
		TotalPathsGenerated: r.opts.NumPaths,
		SelectionMethod:     SelectionWeightedScore,
	}
	span.SetTag("run_id", result.RunID.String())

	paths := r.generator.GenerateReasoningPaths(ctx, query, qctx, r.opts.NumPaths)
	r.metrics.RecordPaths(r.opts.NumPaths, len(paths))
	span.SetInt("paths", len(paths))

	if len(paths) == 0 {
		result.Paths = paths
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		span.SetError(ErrNoPaths)
		timer.Stop("degraded")
		r.logger.Warn("Reasoning degraded: no paths generated",
			zap.String("run_id", result.RunID.String()),
			zap.Int("requested", r.opts.NumPaths),
		)
		return result, ErrNoPaths
	}

	paths = r.evaluator.EvaluatePaths(ctx, paths)
	r.metrics.RecordEvalFallbacks(countFallbacks(paths))

	selected, err := SelectBestPath(paths, r.opts.EvalWeight, r.opts.ConfWeight)
	if err != nil {
		timer.Stop("error")
		return nil, err
	}

	result.Paths = paths
	result.SelectedPath = selected
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	timer.Stop("success")
	span.SetFloat("combined_score", CombinedScore(selected, r.opts.EvalWeight, r.opts.ConfWeight))
	r.logger.Info("Reasoning completed",
		zap.String("run_id", result.RunID.String()),
		zap.Int("paths", len(paths)),
		zap.String("selected", selected.ID.String()),
		zap.Int64("processing_ms", result.ProcessingTimeMs),
	)
	return result, nil
}

func countFallbacks(paths []*Path) int {
	n := 0
	for _, p := range paths {
		if fallback, _ := p.Metadata[MetaEvaluationFallback].(bool); fallback {
			n++
		}
	}
	return n
}
