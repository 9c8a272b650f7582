package reasoning

import "errors"

// ErrEmptyPaths is returned when selection is asked to choose from nothing
var ErrEmptyPaths = errors.New("no reasoning paths to select from")

// CombinedScore weighs a path's evaluation and confidence scores
func CombinedScore(p *Path, evalWeight, confWeight float64) float64 {
	return p.EvaluationScore*evalWeight + p.Confidence*confWeight
}

// SelectBestPath returns the path with the highest combined score. Ties go
// to the earliest path. The winner's combined score is stored in its
// metadata.
func SelectBestPath(paths []*Path, evalWeight, confWeight float64) (*Path, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyPaths
	}

	best := paths[0]
	bestScore := CombinedScore(best, evalWeight, confWeight)
	for _, p := range paths[1:] {
		if score := CombinedScore(p, evalWeight, confWeight); score > bestScore {
			best, bestScore = p, score
		}
	}

	if best.Metadata == nil {
		best.Metadata = make(map[string]any)
	}
	best.Metadata[MetaCombinedScore] = bestScore
	return best, nil
}
