package embedding

import (
	"context"
	"hash/fnv"
	"sync/atomic"
)

// MockEmbedder produces deterministic vectors without a network call.
// Texts registered with Set map to fixed vectors; anything else is hashed.
type MockEmbedder struct {
	dimension int
	fixed     map[string][]float32
	calls     atomic.Int64
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension, fixed: make(map[string][]float32)}
}

// Set pins the vector returned for text. Not safe to call concurrently with Embed.
func (e *MockEmbedder) Set(text string, vector []float32) *MockEmbedder {
	e.fixed[text] = vector
	return e
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.fixed[text]; ok {
			embeddings[i] = append([]float32(nil), v...)
			continue
		}
		embeddings[i] = hashVector(text, e.dimension)
	}
	return embeddings, nil
}

// Calls reports how many times Embed has been invoked.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

func hashVector(text string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	v := make([]float32, dim)
	for i, r := range text {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(r)))
		idx := (int(h.Sum32()%uint32(dim)) + i) % dim
		v[idx] += float32(r) / 1000.0
	}
	return v
}
