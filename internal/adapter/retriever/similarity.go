package retriever

import (
	"fmt"
	"math"

	"folio/internal/domain"
)

// DegenerateScore is the score given when either vector has zero magnitude
// (or the computation is otherwise undefined). It is the lowest cosine value,
// so degenerate entries rank last and never poison the sort with NaN.
const DegenerateScore = -1.0

// CosineSimilarity computes dot(a,b) / (|a| * |b|), accumulating in float64.
// Vectors of different length are an error, never truncated or padded.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: query has %d dimensions, entry has %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return DegenerateScore, nil
	}

	sim := dotProduct / math.Sqrt(normA*normB)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return DegenerateScore, nil
	}

	// rounding can push |sim| a hair past 1
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}
