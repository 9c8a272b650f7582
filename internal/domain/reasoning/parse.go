package reasoning

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	stepPattern       = regexp.MustCompile(`^\s*(?:\d+[.):]?|[-*•])\s*`)
	conclusionPattern = regexp.MustCompile(`(?i)^\**\s*(conclusion|therefore|in summary)\b\**\s*[:,\-]?\s*\**\s*`)
	confidencePattern = regexp.MustCompile(`(?i)confidence(?:\s+(?:score|level))?\s*[:=]\s*([0-9]*\.?[0-9]+)\s*(%?)`)
	numberPattern     = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)
)

// ParseResponse splits generated text into reasoning steps and a conclusion.
//
// Steps are lines starting with a digit, bullet or dash. The conclusion is the
// first line starting with "conclusion", "therefore" or "in summary", else the
// last step, else the last non-empty line of the text.
func ParseResponse(text string) (steps []string, conclusion string) {
	steps = []string{}
	found := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		body := line
		if loc := stepPattern.FindStringIndex(line); loc != nil {
			body = strings.TrimSpace(line[loc[1]:])
		}

		if !found {
			if loc := conclusionPattern.FindStringIndex(body); loc != nil {
				conclusion = strings.TrimSpace(body[loc[1]:])
				if conclusion == "" {
					conclusion = body
				}
				found = true
				continue
			}
		}

		if body != line && body != "" {
			steps = append(steps, body)
		}
	}

	if found {
		return steps, conclusion
	}
	if len(steps) > 0 {
		return steps, steps[len(steps)-1]
	}
	return steps, lastLine(text)
}

// ParseConfidence extracts a "Confidence: x" marker. A value followed by "%"
// is a percentage; anything else is clamped into [0, 1]. ok is false when no
// marker is present.
func ParseConfidence(text string) (confidence float64, ok bool) {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return NeutralScore, false
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return NeutralScore, false
	}
	if m[2] == "%" {
		v /= 100
	}
	return clamp01(v), true
}

// ParseScore reads the first number in an evaluator response and clamps it
// into [0, 1]. Non-numeric responses yield the neutral score and ok=false.
func ParseScore(text string) (score float64, ok bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return NeutralScore, false
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return NeutralScore, false
	}
	return clamp01(v), true
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
