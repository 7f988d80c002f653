package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"folio/internal/adapter/cache"
	"folio/internal/domain"
	"folio/internal/port"
)

// CorpusUseCase keeps the in-memory store in step with the persisted corpus.
type CorpusUseCase struct {
	loader            port.CorpusLoader
	store             port.ReloadableStore
	cache             *cache.QueryCache
	expectedDimension int
	logger            *zap.Logger
}

type CorpusOptions struct {
	// Cache is invalidated after every successful reload.
	Cache *cache.QueryCache
	// ExpectedDimension is the query embedding dimension; a corpus that
	// disagrees is still loaded but logged, since every query would miss.
	ExpectedDimension int
	Logger            *zap.Logger
}

func NewCorpusUseCase(loader port.CorpusLoader, store port.ReloadableStore, opts CorpusOptions) *CorpusUseCase {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &CorpusUseCase{
		loader:            loader,
		store:             store,
		cache:             opts.Cache,
		expectedDimension: opts.ExpectedDimension,
		logger:            opts.Logger,
	}
}

// Reload reads the corpus and swaps it into the store. On error the store
// keeps serving whatever it held before.
func (u *CorpusUseCase) Reload(ctx context.Context) (domain.StoreStats, error) {
	entries, err := u.loader.Load(ctx)
	if err != nil {
		u.logger.Error("failed to load corpus, keeping current snapshot",
			zap.String("origin", u.loader.Origin()),
			zap.Error(err))
		return u.store.Stats(), fmt.Errorf("load corpus: %w", err)
	}

	if err := u.store.Replace(entries, u.loader.Origin()); err != nil {
		u.logger.Error("corpus rejected, keeping current snapshot",
			zap.String("origin", u.loader.Origin()),
			zap.Error(err))
		return u.store.Stats(), fmt.Errorf("replace corpus: %w", err)
	}

	if u.cache != nil {
		u.cache.Invalidate()
	}

	stats := u.store.Stats()
	if stats.Loaded && u.expectedDimension > 0 && stats.Dimension != u.expectedDimension {
		u.logger.Warn("corpus dimension differs from the query embedding model",
			zap.Int("corpus_dimension", stats.Dimension),
			zap.Int("query_dimension", u.expectedDimension))
	}
	u.logger.Info("corpus loaded",
		zap.String("origin", stats.Origin),
		zap.Int("entries", stats.Entries),
		zap.Int("dimension", stats.Dimension),
		zap.Uint64("generation", stats.Generation))
	return stats, nil
}

// Stats describes the snapshot currently served.
func (u *CorpusUseCase) Stats() domain.StoreStats {
	return u.store.Stats()
}

// Coverage counts the loaded entries per normalized source name.
func (u *CorpusUseCase) Coverage(normalize func(string) string) map[string]int {
	counts := make(map[string]int)
	for _, e := range u.store.All() {
		if name := normalize(e.Source); name != "" {
			counts[name]++
		}
	}
	return counts
}
