package analysis

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/newsdesk/internal/retrieval"
)

const (
	baseConfidence = 0.5
	maxConfidence  = 0.95
)

// Score derives a confidence in [0, 0.95] from how many documents were
// retrieved, how similar they were, and whether the response looks like a
// real answer. A value that cannot be computed scores 0.5.
func Score(candidates []retrieval.Candidate, response string) float64 {
	score := baseConfidence

	switch {
	case len(candidates) >= 3:
		score += 0.2
	case len(candidates) >= 1:
		score += 0.1
	}

	if len(candidates) > 0 {
		score += math.Min(meanSimilarity(candidates)*0.3, 0.3)
	}

	if utf8.RuneCountInString(response) > 100 && !strings.HasPrefix(response, "Error") {
		score += 0.1
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return baseConfidence
	}
	return math.Max(0, math.Min(score, maxConfidence))
}

func meanSimilarity(candidates []retrieval.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.Similarity
	}
	return sum / float64(len(candidates))
}

func distinctSources(candidates []retrieval.Candidate) int {
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		seen[c.Document.Source] = struct{}{}
	}
	return len(seen)
}
