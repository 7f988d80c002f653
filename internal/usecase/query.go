package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"folio/internal/adapter/cache"
	"folio/internal/domain"
	"folio/internal/port"
)

const (
	DefaultTopK              = 3
	DefaultMaxQuestionLength = 1000
)

// QueryUseCase turns a visitor question into the context bundle handed to
// prompt construction.
type QueryUseCase struct {
	store             port.ReloadableStore
	embedder          port.Embedder
	retriever         port.Retriever
	cache             *cache.QueryCache
	topK              int
	maxQuestionLength int
	logger            *zap.Logger
}

type QueryOptions struct {
	TopK              int
	MaxQuestionLength int
	// Cache is optional; nil disables caching.
	Cache  *cache.QueryCache
	Logger *zap.Logger
}

func NewQueryUseCase(store port.ReloadableStore, embedder port.Embedder, retriever port.Retriever, opts QueryOptions) *QueryUseCase {
	if opts.TopK < 1 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxQuestionLength < 1 {
		opts.MaxQuestionLength = DefaultMaxQuestionLength
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &QueryUseCase{
		store:             store,
		embedder:          embedder,
		retriever:         retriever,
		cache:             opts.Cache,
		topK:              opts.TopK,
		maxQuestionLength: opts.MaxQuestionLength,
		logger:            opts.Logger,
	}
}

// TopK is the k used when a caller passes none.
func (u *QueryUseCase) TopK() int {
	return u.topK
}

// ValidateQuestion returns the trimmed question or an ErrInvalidQuestion.
func (u *QueryUseCase) ValidateQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", fmt.Errorf("%w: question is required", domain.ErrInvalidQuestion)
	}
	if n := utf8.RuneCountInString(q); n > u.maxQuestionLength {
		return "", fmt.Errorf("%w: question is %d characters, limit is %d", domain.ErrInvalidQuestion, n, u.maxQuestionLength)
	}
	return q, nil
}

// Ask embeds question and retrieves its context. k < 1 means the configured
// default. With no corpus loaded it returns ErrStoreNotLoaded without
// calling the embedder.
func (u *QueryUseCase) Ask(ctx context.Context, question string, k int) (domain.ContextBundle, error) {
	q, err := u.ValidateQuestion(question)
	if err != nil {
		return domain.ContextBundle{}, err
	}
	if k < 1 {
		k = u.topK
	}

	stats := u.store.Stats()
	if !stats.Loaded {
		return domain.ContextBundle{}, domain.ErrStoreNotLoaded
	}

	if u.cache != nil {
		if bundle, ok := u.cache.Get(q, k, stats.Generation); ok {
			u.logger.Debug("query cache hit", zap.Int("k", k))
			return bundle, nil
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{q})
	if err != nil {
		return domain.ContextBundle{}, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return domain.ContextBundle{}, fmt.Errorf("embed question: expected 1 vector, got %d", len(vectors))
	}

	bundle, err := u.retriever.Retrieve(ctx, vectors[0], k)
	if err != nil {
		return domain.ContextBundle{}, err
	}

	u.logger.Debug("retrieved context",
		zap.Int("k", k),
		zap.Strings("sources", bundle.Sources),
		zap.Int("context_bytes", len(bundle.ContextText)))

	if u.cache != nil {
		u.cache.Put(q, k, stats.Generation, bundle)
	}
	return bundle, nil
}

// RetrieveVector retrieves for an already embedded query, bypassing the
// embedder and the cache.
func (u *QueryUseCase) RetrieveVector(ctx context.Context, query []float32, k int) (domain.ContextBundle, error) {
	if k < 1 {
		k = u.topK
	}
	if !u.store.IsLoaded() {
		return domain.ContextBundle{}, domain.ErrStoreNotLoaded
	}
	return u.retriever.Retrieve(ctx, query, k)
}
