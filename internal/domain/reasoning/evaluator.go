package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/fanout"
	"go.uber.org/zap"
)

// PathEvaluator scores paths with one generation call each
type PathEvaluator struct {
	gen    llm.Generator
	opts   Options
	logger *zap.Logger
}

// NewPathEvaluator creates an evaluator over gen
func NewPathEvaluator(gen llm.Generator, opts Options, logger *zap.Logger) *PathEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathEvaluator{
		gen:    gen,
		opts:   opts.withDefaults(),
		logger: logger.Named("reasoning.evaluator"),
	}
}

// EvaluatePaths sets EvaluationScore on every path and returns the same
// slice. A failed evaluation leaves the path in place with NeutralScore and
// MetaEvaluationFallback set.
func (e *PathEvaluator) EvaluatePaths(ctx context.Context, paths []*Path) []*Path {
	outcomes := fanout.Collect(ctx, len(paths), e.opts.MaxConcurrent, func(ctx context.Context, i int) (float64, error) {
		text, err := e.gen.Generate(ctx, buildEvalPrompt(paths[i]), llm.SamplingParams{
			Temperature: e.opts.EvalTemperature,
			MaxTokens:   e.opts.EvalMaxTokens,
		})
		if err != nil {
			return NeutralScore, err
		}

		score, ok := ParseScore(text)
		if !ok {
			return NeutralScore, fmt.Errorf("non-numeric evaluation %q", truncate(text, 40))
		}
		return score, nil
	})

	for _, o := range outcomes {
		path := paths[o.Index]
		path.EvaluationScore = o.Value
		if o.Err != nil {
			path.EvaluationScore = NeutralScore
			if path.Metadata == nil {
				path.Metadata = make(map[string]any)
			}
			path.Metadata[MetaEvaluationFallback] = true
			e.logger.Debug("Evaluation fell back to neutral score",
				zap.String("path_id", path.ID.String()),
				zap.Error(o.Err),
			)
		}
	}

	return paths
}

func buildEvalPrompt(p *Path) string {
	var b strings.Builder

	b.WriteString("Rate the quality of the following reasoning on a scale from 0 to 1.\n")
	b.WriteString("Reply with a single number and nothing else.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nReasoning:\n", p.Query)
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\nConclusion: %s\n", p.Conclusion)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
