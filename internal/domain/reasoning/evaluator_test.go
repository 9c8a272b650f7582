package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm/llmtest"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPath(conclusion string, confidence float64) *Path {
	return &Path{
		ID:         id.NewPathID(),
		Query:      "q",
		Steps:      []string{"step"},
		Conclusion: conclusion,
		Confidence: confidence,
		Metadata:   map[string]any{},
	}
}

func promptFor(conclusion string) any {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Conclusion: "+conclusion+"\n")
	})
}

func TestEvaluatePaths(t *testing.T) {
	m := new(llmtest.Mock)
	m.On("Generate", mock.Anything, promptFor("good"), mock.Anything).Return("0.9", nil)
	m.On("Generate", mock.Anything, promptFor("wild"), mock.Anything).Return("3.5", nil)
	m.On("Generate", mock.Anything, promptFor("vague"), mock.Anything).Return("pretty decent", nil)
	m.On("Generate", mock.Anything, promptFor("broken"), mock.Anything).Return("", errors.New("timeout"))

	paths := []*Path{
		newPath("good", 0.5),
		newPath("wild", 0.5),
		newPath("vague", 0.5),
		newPath("broken", 0.5),
	}

	e := NewPathEvaluator(m, Options{MaxConcurrent: 2}, nil)
	out := e.EvaluatePaths(context.Background(), paths)

	require.Len(t, out, 4, "evaluation never drops a path")
	assert.InDelta(t, 0.9, out[0].EvaluationScore, 1e-9)
	assert.InDelta(t, 1.0, out[1].EvaluationScore, 1e-9)
	assert.InDelta(t, NeutralScore, out[2].EvaluationScore, 1e-9)
	assert.InDelta(t, NeutralScore, out[3].EvaluationScore, 1e-9)

	assert.Nil(t, out[0].Metadata[MetaEvaluationFallback])
	assert.Equal(t, true, out[2].Metadata[MetaEvaluationFallback])
	assert.Equal(t, true, out[3].Metadata[MetaEvaluationFallback])

	m.AssertNumberOfCalls(t, "Generate", 4)
}

func TestEvaluatePathsUsesEvalSampling(t *testing.T) {
	fake := llmtest.Text("0.6")
	e := NewPathEvaluator(fake, Options{EvalTemperature: 0.2, EvalMaxTokens: 8}, nil)

	e.EvaluatePaths(context.Background(), []*Path{newPath("x", 0.5)})

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.SamplingParams{Temperature: 0.2, MaxTokens: 8}, calls[0].Params)
}

func TestEvaluatePathsEmpty(t *testing.T) {
	fake := llmtest.Text("0.6")
	e := NewPathEvaluator(fake, Options{}, nil)

	assert.Empty(t, e.EvaluatePaths(context.Background(), nil))
	assert.Empty(t, fake.Calls())
}
