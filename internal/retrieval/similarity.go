package retrieval

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b clamped to [-1, 1].
// Mismatched lengths, empty vectors and zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, aNormSq, bNormSq float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aNormSq += x * x
		bNormSq += y * y
	}
	if aNormSq == 0 || bNormSq == 0 {
		return 0
	}
	s := dot / (math.Sqrt(aNormSq) * math.Sqrt(bNormSq))
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// Scored pairs a pool index with its similarity to the query.
type Scored struct {
	Index int
	Score float64
}

// Rank scores every vector against query and returns them ordered by
// descending similarity. Equal scores keep pool order.
func Rank(query []float32, vectors [][]float32) []Scored {
	out := make([]Scored, len(vectors))
	for i, v := range vectors {
		out[i] = Scored{Index: i, Score: Cosine(query, v)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
