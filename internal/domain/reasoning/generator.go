package reasoning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/fanout"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/id"
	"go.uber.org/zap"
)

// PathGenerator fans a query out into independent reasoning paths
type PathGenerator struct {
	gen    llm.Generator
	opts   Options
	logger *zap.Logger
}

// NewPathGenerator creates a path generator over gen
func NewPathGenerator(gen llm.Generator, opts Options, logger *zap.Logger) *PathGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathGenerator{
		gen:    gen,
		opts:   opts.withDefaults(),
		logger: logger.Named("reasoning.generator"),
	}
}

// Temperature returns the sampling temperature for path i of n. It rises
// monotonically from BaseTemperature to BaseTemperature+TemperatureSpread.
func (g *PathGenerator) Temperature(i, n int) float64 {
	if n <= 1 {
		return g.opts.BaseTemperature
	}
	return g.opts.BaseTemperature + g.opts.TemperatureSpread*float64(i)/float64(n-1)
}

// GenerateReasoningPaths issues numPaths generation calls with at most
// MaxConcurrent in flight. Failed or empty generations are dropped, so the
// result may hold fewer than numPaths paths; it is never an error.
func (g *PathGenerator) GenerateReasoningPaths(ctx context.Context, query string, qctx map[string]any, numPaths int) []*Path {
	if numPaths <= 0 {
		return []*Path{}
	}

	prompt := buildPathPrompt(query, qctx)

	outcomes := fanout.Collect(ctx, numPaths, g.opts.MaxConcurrent, func(ctx context.Context, i int) (*Path, error) {
		temperature := g.Temperature(i, numPaths)

		text, err := g.gen.Generate(ctx, prompt, llm.SamplingParams{
			Temperature: temperature,
			MaxTokens:   g.opts.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if llm.IsEmpty(text) {
			return nil, llm.ErrEmptyResponse
		}

		steps, conclusion := ParseResponse(text)
		confidence, _ := ParseConfidence(text)

		return &Path{
			ID:         id.NewPathID(),
			Query:      query,
			Steps:      steps,
			Conclusion: conclusion,
			Confidence: confidence,
			Metadata: map[string]any{
				MetaGenerationIndex: i,
				MetaTemperature:     temperature,
			},
		}, nil
	})

	paths := make([]*Path, 0, numPaths)
	for _, o := range outcomes {
		if o.Err != nil {
			g.logger.Warn("Dropping reasoning path",
				zap.Int("index", o.Index),
				zap.Error(o.Err),
			)
			continue
		}
		paths = append(paths, o.Value)
	}

	g.logger.Debug("Generated reasoning paths",
		zap.Int("requested", numPaths),
		zap.Int("kept", len(paths)),
	)
	return paths
}

func buildPathPrompt(query string, qctx map[string]any) string {
	var b strings.Builder

	b.WriteString("Reason through the following question step by step.\n\n")
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

	b.WriteString("\nWrite each reasoning step on its own numbered line.\n")
	b.WriteString("Then write a line starting with \"Conclusion:\" followed by your answer.\n")
	b.WriteString("Finish with a line \"Confidence: <number between 0 and 1>\".\n")
	return b.String()
}
