package domain

import "errors"

var (
	// ErrDimensionMismatch is returned when a query vector and a corpus embedding
	// come from embedding models of different dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	ErrEmptyQuery = errors.New("query embedding is empty")

	ErrInvalidTopK = errors.New("top-k must be at least 1")

	// ErrInvalidEntry is returned when a corpus record violates the entry invariants.
	ErrInvalidEntry = errors.New("invalid corpus entry")

	// ErrStoreNotLoaded signals that no corpus is loaded; callers answer
	// "service unavailable" rather than treating it as a failure.
	ErrStoreNotLoaded = errors.New("corpus not loaded")

	ErrInvalidQuestion = errors.New("invalid question")
)
