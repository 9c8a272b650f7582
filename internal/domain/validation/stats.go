package validation

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"
)

// Scoring constants. The formulas are fixed; the constants are tunable.
const (
	// SmallSampleSize is the sample count below which consistency is scaled
	// down by total/SmallSampleSize
	SmallSampleSize = 10
	// ConfidenceBase is the share of consistency granted at any sample size
	ConfidenceBase = 0.7
	// ConfidenceSampleWeight is the share earned by sample size
	ConfidenceSampleWeight = 0.3
	// ConfidenceSaturation is the sample size at which the size share is full
	ConfidenceSaturation = 100
)

// Normalize lowercases text, strips punctuation and collapses whitespace
func Normalize(text string) string {
	stripped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', unicode.IsSpace(r):
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, text)
	return strings.Join(strings.Fields(stripped), " ")
}

// CalculateConsistency scores agreement between results in [0,1]. Identical
// results score close to 1, all-distinct results score 0.
func CalculateConsistency(results []string) float64 {
	total := len(results)
	if total == 0 {
		return 0
	}

	distinct := make(map[string]struct{}, total)
	for _, r := range results {
		distinct[Normalize(r)] = struct{}{}
	}

	consistency := math.Max(0, 1-float64(len(distinct))/float64(total))
	if total < SmallSampleSize {
		consistency *= float64(total) / SmallSampleSize
	}
	return consistency
}

// CalculateConfidence discounts consistency for small sample sizes
func CalculateConfidence(consistency float64, total int) float64 {
	if total <= 0 {
		return 0
	}
	sizeFactor := math.Min(1, float64(total)/ConfidenceSaturation)
	return consistency * (ConfidenceBase + ConfidenceSampleWeight*sizeFactor)
}

// CalculateVariance returns the coefficient of variation of result lengths,
// capped at 1. Fewer than two results yield 0.
func CalculateVariance(results []string) float64 {
	if len(results) < 2 {
		return 0
	}

	lengths := make([]float64, len(results))
	for i, r := range results {
		lengths[i] = float64(utf8.RuneCountInString(r))
	}

	mean := stat.Mean(lengths, nil)
	if mean == 0 {
		return 0
	}
	return math.Min(1, stat.StdDev(lengths, nil)/mean)
}
