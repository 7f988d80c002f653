package retriever

import (
	"errors"
	"math"
	"testing"

	"folio/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"near", []float32{1, 0}, []float32{0.9, 0.1}, 0.9 / math.Sqrt(0.82)},
		{"zero query", []float32{0, 0}, []float32{1, 0}, DegenerateScore},
		{"zero entry", []float32{1, 0}, []float32{0, 0}, DegenerateScore},
		{"both zero", []float32{0, 0}, []float32{0, 0}, DegenerateScore},
		{"empty", []float32{}, []float32{}, DegenerateScore},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CosineSimilarity(tc.a, tc.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !floatEquals(got, tc.expected, 1e-6) {
				t.Errorf("CosineSimilarity(%v, %v) = %f, expected %f", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity_NeverNaN(t *testing.T) {
	inf := float32(math.Inf(1))
	got, err := CosineSimilarity([]float32{inf, 1}, []float32{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("expected a finite score, got %f", got)
	}
	if got != DegenerateScore {
		t.Errorf("expected degenerate score for infinite input, got %f", got)
	}
}

func TestCosineSimilarity_Bounded(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.2, 0.3},
		{-5, 3, 1e-3},
		{1e6, -1e6, 7},
		{3, 3, 3},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			got, err := CosineSimilarity(a, b)
			if err != nil {
				t.Fatal(err)
			}
			if got < -1 || got > 1 {
				t.Errorf("CosineSimilarity(%v, %v) = %f out of [-1, 1]", a, b, got)
			}
		}
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	for _, v := range [][]float32{{0.3, -0.7, 0.2}, {1e-4, 2e-4}, {12, 5}} {
		got, err := CosineSimilarity(v, v)
		if err != nil {
			t.Fatal(err)
		}
		if !floatEquals(got, 1.0, 1e-9) {
			t.Errorf("self similarity of %v = %f, expected 1", v, got)
		}
	}
}

func TestCosineSimilarity_ScaledCopiesScoreEqually(t *testing.T) {
	queries := [][]float32{{1, 1}, {1, 0}, {2, -1, 3}}
	for _, q := range queries {
		base, err := CosineSimilarity(q, q)
		if err != nil {
			t.Fatal(err)
		}
		for _, scale := range []float32{2, 3, 7, 0.5} {
			scaled := make([]float32, len(q))
			for i, v := range q {
				scaled[i] = v * scale
			}
			got, err := CosineSimilarity(q, scaled)
			if err != nil {
				t.Fatal(err)
			}
			if got != base {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", q, scaled, got, base)
			}
		}
	}
}

func floatEquals(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance
}
