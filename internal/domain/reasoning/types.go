package reasoning

import (
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/id"
)

// SelectionWeightedScore tags results selected by weighted combined score
const SelectionWeightedScore = "weighted_score"

// Metadata keys set on paths
const (
	MetaGenerationIndex    = "generation_index"
	MetaTemperature        = "temperature"
	MetaCombinedScore      = "combined_score"
	MetaEvaluationFallback = "evaluation_fallback"
)

// NeutralScore is used when a confidence or evaluation score is unavailable
const NeutralScore = 0.5

// Path is one independent step-by-step attempt at answering a query.
// It is created by the generator, scored once by the evaluator and annotated
// once by the selector.
type Path struct {
	ID              id.PathID      `json:"path_id"`
	Query           string         `json:"query"`
	Steps           []string       `json:"reasoning_steps"`
	Conclusion      string         `json:"conclusion"`
	Confidence      float64        `json:"confidence_score"`
	EvaluationScore float64        `json:"evaluation_score"`
	Metadata        map[string]any `json:"metadata"`
}

// Result is the outcome of one Reason call
type Result struct {
	RunID               id.RunID `json:"run_id"`
	Query               string   `json:"query"`
	Paths               []*Path  `json:"paths"`
	SelectedPath        *Path    `json:"selected_path"`
	TotalPathsGenerated int      `json:"total_paths_generated"`
	SelectionMethod     string   `json:"selection_method"`
	ProcessingTimeMs    int64    `json:"processing_time_ms"`
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
