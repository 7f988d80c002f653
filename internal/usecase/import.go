package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"folio/internal/adapter/corpus"
	"folio/internal/adapter/memstore"
	"folio/internal/adapter/store"
	"folio/internal/domain"
)

// ImportUseCase copies embeddings files into the bolt corpus.
type ImportUseCase struct {
	store  *store.BoltStore
	model  string
	logger *zap.Logger
}

func NewImportUseCase(st *store.BoltStore, model string, logger *zap.Logger) *ImportUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportUseCase{store: st, model: model, logger: logger}
}

// ImportResult contains the results of an import.
type ImportResult struct {
	Files     int
	Entries   int
	Dimension int
	Errors    []string
}

// Read decodes and validates files in order. A file that cannot be parsed
// is reported in the result and skipped.
func (u *ImportUseCase) Read(ctx context.Context, files []string) ([]domain.VectorEntry, *ImportResult, error) {
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no corpus files to import")
	}

	result := &ImportResult{}
	var all []domain.VectorEntry
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		entries, err := corpus.ReadFile(path, u.logger)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		result.Files++
		all = append(all, entries...)
	}

	all = corpus.Sanitize(all, strings.Join(files, ","), u.logger)
	dim, err := memstore.ValidateEntries(all)
	if err != nil {
		return nil, nil, err
	}
	result.Entries = len(all)
	result.Dimension = dim
	return all, result, nil
}

// Write replaces the stored corpus with entries. Nothing is written when
// entries is empty, so a bad import never wipes a good corpus.
func (u *ImportUseCase) Write(ctx context.Context, entries []domain.VectorEntry, origin string, progress func()) error {
	if len(entries) == 0 {
		return fmt.Errorf("no valid entries to import")
	}
	if err := u.store.Import(ctx, entries, origin, u.model, progress); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	u.logger.Info("corpus imported",
		zap.String("path", u.store.Path()),
		zap.String("origin", origin),
		zap.Int("entries", len(entries)))
	return nil
}
