package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm/llmtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel answers path prompts with a conclusion and confidence keyed
// by temperature, and evaluation prompts with a score keyed by conclusion.
func scriptedModel(scores map[string]string) *llmtest.Fake {
	return &llmtest.Fake{
		Respond: func(_ context.Context, _ int, prompt string, p llm.SamplingParams) (string, error) {
			if strings.HasPrefix(prompt, "Rate the quality") {
				for conclusion, score := range scores {
					if strings.Contains(prompt, "Conclusion: "+conclusion+"\n") {
						return score, nil
					}
				}
				return "", errors.New("unexpected evaluation")
			}
			return fmt.Sprintf("1. think\n2. decide\nConclusion: answer-%.2f\nConfidence: 0.5", p.Temperature), nil
		},
	}
}

func TestReason(t *testing.T) {
	model := scriptedModel(map[string]string{
		"answer-0.70": "0.6",
		"answer-0.85": "0.95",
		"answer-1.00": "0.7",
	})

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	tracer := tracing.New("reasoner-test", nil)
	defer tracer.Close()

	r := NewReasoner(model, Options{NumPaths: 3}, nil).WithMetrics(metrics).WithTracer(tracer)

	result, err := r.Reason(context.Background(), "pick one", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.RunID.String(), "run_"))
	assert.Equal(t, "pick one", result.Query)
	assert.Equal(t, 3, result.TotalPathsGenerated)
	assert.Equal(t, SelectionWeightedScore, result.SelectionMethod)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))
	require.Len(t, result.Paths, 3)

	require.NotNil(t, result.SelectedPath)
	assert.Equal(t, "answer-0.85", result.SelectedPath.Conclusion)
	// 0.6*0.95 + 0.4*0.5
	assert.InDelta(t, 0.77, result.SelectedPath.Metadata[MetaCombinedScore].(float64), 1e-9)

	// three generations plus three evaluations
	assert.Len(t, model.Calls(), 6)
}

func TestReasonDegradesWhenNoPaths(t *testing.T) {
	model := llmtest.Failing(errors.New("backend down"))
	r := NewReasoner(model, Options{NumPaths: 4}, nil)

	result, err := r.Reason(context.Background(), "anything", map[string]any{"k": "v"})

	assert.ErrorIs(t, err, ErrNoPaths)
	require.NotNil(t, result)
	assert.Empty(t, result.Paths)
	assert.Nil(t, result.SelectedPath)
	assert.Equal(t, 4, result.TotalPathsGenerated)
	assert.Len(t, model.Calls(), 4, "no evaluation calls without paths")
}

func TestReasonEvaluationFallback(t *testing.T) {
	model := scriptedModel(map[string]string{})
	r := NewReasoner(model, Options{NumPaths: 2}, nil)

	result, err := r.Reason(context.Background(), "q", nil)
	require.NoError(t, err)

	for _, p := range result.Paths {
		assert.Equal(t, NeutralScore, p.EvaluationScore)
		assert.Equal(t, true, p.Metadata[MetaEvaluationFallback])
	}
	assert.Same(t, result.Paths[0], result.SelectedPath)
}

func TestReasonRejectsEmptyQuery(t *testing.T) {
	model := llmtest.Text(sampleAnswer)
	r := NewReasoner(model, Options{}, nil)

	result, err := r.Reason(context.Background(), "   ", nil)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, model.Calls())
}

func TestNewReasonerAppliesDefaults(t *testing.T) {
	r := NewReasoner(llmtest.Text(""), Options{}, nil)
	assert.Equal(t, DefaultOptions(), r.Options())
}
