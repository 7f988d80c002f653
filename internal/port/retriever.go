package port

import (
	"context"

	"folio/internal/domain"
)

// Retriever selects the top-k corpus entries for a query vector.
type Retriever interface {
	Retrieve(ctx context.Context, query []float32, k int) (domain.ContextBundle, error)
}
