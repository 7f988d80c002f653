package cli

import (
	"context"
	"fmt"

	"folio/config"
	"folio/internal/adapter/cache"
	"folio/internal/adapter/corpus"
	"folio/internal/adapter/embedding"
	"folio/internal/adapter/memstore"
	"folio/internal/adapter/retriever"
	"folio/internal/adapter/store"
	"folio/internal/port"
	"folio/internal/usecase"
)

// app is the wired retrieval stack for one command invocation.
type app struct {
	store      *memstore.VectorStore
	retriever  *retriever.SemanticRetriever
	corpus     *usecase.CorpusUseCase
	query      *usecase.QueryUseCase
	fileLoader *corpus.FileLoader // nil with the bolt backend
}

// newApp wires the stack from cfg. The embedder is only built when asked
// for, so vector queries and status work without an API key.
func newApp(cfg *config.Config, dir string, withEmbedder bool) (*app, error) {
	policy, err := retriever.ParseMismatchPolicy(cfg.Retrieve.MismatchPolicy)
	if err != nil {
		return nil, err
	}

	a := &app{store: memstore.NewVectorStore()}

	var loader port.CorpusLoader
	switch cfg.Corpus.Backend {
	case "bolt":
		loader = store.NewBoltCorpus(cfg.BoltPath(dir), logger)
	default:
		a.fileLoader, err = corpus.NewFileLoader(dir, cfg.Corpus.Patterns, logger)
		if err != nil {
			return nil, err
		}
		loader = a.fileLoader
	}

	var qc *cache.QueryCache
	if cfg.Retrieve.CacheSize > 0 {
		qc = cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
	}

	var embedder port.Embedder = unavailableEmbedder{}
	if withEmbedder {
		embedder, err = newEmbedder(cfg.Embedding)
		if err != nil {
			return nil, err
		}
	}

	a.retriever = retriever.NewSemanticRetriever(a.store,
		retriever.WithMismatchPolicy(policy),
		retriever.WithLogger(logger))
	a.corpus = usecase.NewCorpusUseCase(loader, a.store, usecase.CorpusOptions{
		Cache:             qc,
		ExpectedDimension: embedder.Dimension(),
		Logger:            logger,
	})
	a.query = usecase.NewQueryUseCase(a.store, embedder, a.retriever, usecase.QueryOptions{
		TopK:              cfg.Retrieve.TopK,
		MaxQuestionLength: cfg.Retrieve.MaxQuestionLength,
		Cache:             qc,
		Logger:            logger,
	})
	return a, nil
}

func newEmbedder(ec config.EmbeddingConfig) (port.Embedder, error) {
	switch ec.Provider {
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			APIKeyEnv: ec.APIKeyEnv,
			Model:     ec.Model,
			BaseURL:   ec.BaseURL,
			Dimension: ec.Dimension,
			Timeout:   ec.Timeout,
		})
	}
}

// unavailableEmbedder stands in when a command never embeds text.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("no embedder configured for this command")
}

func (unavailableEmbedder) Dimension() int { return 0 }

func (unavailableEmbedder) ModelName() string { return "" }
