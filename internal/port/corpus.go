package port

import (
	"context"

	"folio/internal/domain"
)

// CorpusLoader reads the persisted corpus.
type CorpusLoader interface {
	// Load returns the validated entries in corpus order. A corpus that
	// does not exist yet yields no entries and no error.
	Load(ctx context.Context) ([]domain.VectorEntry, error)

	// Origin describes where the corpus is read from, for status output.
	Origin() string
}
