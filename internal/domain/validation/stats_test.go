package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "Paris", expected: "paris"},
		{in: "  The answer is: PARIS!  ", expected: "the answer is paris"},
		{in: "snake_case\tand\nlines", expected: "snake_case and lines"},
		{in: "Élan, vital.", expected: "élan vital"},
		{in: "?!", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.in))
		})
	}
}

func TestCalculateConsistency(t *testing.T) {
	distinct := make([]string, 100)
	for i := range distinct {
		distinct[i] = fmt.Sprintf("x%d", i)
	}

	tests := []struct {
		name     string
		results  []string
		expected float64
	}{
		{name: "empty", results: nil, expected: 0},
		{name: "identical", results: repeat("same", 100), expected: 0.99},
		{name: "all distinct", results: distinct, expected: 0},
		{name: "ten identical", results: repeat("same", 10), expected: 0.9},
		{name: "small sample scaled", results: []string{"Yes.", "yes", " YES! "}, expected: (1 - 1.0/3) * 0.3},
		{name: "single", results: []string{"only"}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateConsistency(tt.results), 1e-9)
		})
	}
}

func TestCalculateConsistencyBounds(t *testing.T) {
	assert.Greater(t, CalculateConsistency(repeat("same", 100)), 0.9)

	distinct := make([]string, 100)
	for i := range distinct {
		distinct[i] = fmt.Sprintf("x%d", i)
	}
	assert.Less(t, CalculateConsistency(distinct), 0.1)
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name        string
		consistency float64
		total       int
		expected    float64
	}{
		{name: "saturated", consistency: 0.99, total: 100, expected: 0.99},
		{name: "beyond saturation", consistency: 0.5, total: 400, expected: 0.5},
		{name: "half size", consistency: 1, total: 50, expected: 0.85},
		{name: "no samples", consistency: 0.5, total: 0, expected: 0},
		{name: "zero consistency", consistency: 0, total: 100, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateConfidence(tt.consistency, tt.total), 1e-9)
		})
	}
}

func TestCalculateVariance(t *testing.T) {
	tests := []struct {
		name     string
		results  []string
		expected float64
	}{
		{name: "empty", results: nil, expected: 0},
		{name: "single", results: []string{"abc"}, expected: 0},
		{name: "equal lengths", results: []string{"ab", "cd", "ef"}, expected: 0},
		{name: "all empty", results: []string{"", ""}, expected: 0},
		// lengths 1 and 3: mean 2, sample stdev sqrt(2)
		{name: "spread", results: []string{"a", "abc"}, expected: 0.7071067811865476},
		{name: "capped", results: []string{"a", strings.Repeat("b", 1000)}, expected: 1},
		{name: "runes not bytes", results: []string{"éé", "ab"}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateVariance(tt.results), 1e-9)
		})
	}
}
