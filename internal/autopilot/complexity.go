package autopilot

import "strings"

// complexityScore computes the heuristic spec.md §4.6 names — "word
// count, question marks, code fences, sentence count" — over text and
// buckets it into {low, medium, high}. There is no teacher precedent
// for this exact heuristic (the multiagent router's intent trigger
// defers to an external LLM classifier instead); this is authored
// directly from the spec's own wording, composing the same
// integer-score-then-threshold shape the router's keyword trigger uses.
func complexityScore(text string) int {
	words := len(strings.Fields(text))
	questionMarks := strings.Count(text, "?")
	codeFences := strings.Count(text, "```") / 2
	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences == 0 && words > 0 {
		sentences = 1
	}

	score := 0
	switch {
	case words >= 200:
		score += 3
	case words >= 60:
		score += 2
	case words >= 20:
		score += 1
	}
	if questionMarks >= 2 {
		score++
	}
	if codeFences > 0 {
		score += 2
	}
	if sentences >= 6 {
		score++
	}
	return score
}

// complexityLevel buckets a raw score into the spec's three levels.
func complexityLevel(text string) ComplexityLevel {
	switch score := complexityScore(text); {
	case score >= 4:
		return ComplexityHigh
	case score >= 2:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// complexityAtLeast reports whether text's complexity meets or exceeds
// threshold.
func complexityAtLeast(text string, threshold ComplexityLevel) bool {
	rank := map[ComplexityLevel]int{ComplexityLow: 0, ComplexityMedium: 1, ComplexityHigh: 2}
	return rank[complexityLevel(text)] >= rank[threshold]
}
