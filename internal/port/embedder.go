package port

import "context"

// Embedder turns text into vectors. The model behind it is opaque to the
// retrieval core; only the dimension has to agree with the corpus.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
