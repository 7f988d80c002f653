package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"folio/internal/domain"
	"folio/internal/port"
)

// MismatchPolicy decides what happens to entries whose embedding dimension
// differs from the query's.
type MismatchPolicy int

const (
	// SkipMismatched excludes the entry and keeps ranking the rest.
	SkipMismatched MismatchPolicy = iota
	// FailOnMismatch aborts the whole retrieval.
	FailOnMismatch
)

func (p MismatchPolicy) String() string {
	switch p {
	case SkipMismatched:
		return "skip"
	case FailOnMismatch:
		return "fail"
	default:
		return fmt.Sprintf("MismatchPolicy(%d)", int(p))
	}
}

// ParseMismatchPolicy maps a config value ("skip", "fail") to a policy.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip", "exclude":
		return SkipMismatched, nil
	case "fail", "fail-fast":
		return FailOnMismatch, nil
	default:
		return SkipMismatched, fmt.Errorf("unknown dimension mismatch policy: %q", s)
	}
}

// SemanticRetriever ranks every store entry against a query vector by cosine
// similarity. Brute force is fine for a corpus of a few hundred chunks.
type SemanticRetriever struct {
	store  port.EntryStore
	policy MismatchPolicy
	logger *zap.Logger
}

type Option func(*SemanticRetriever)

func WithMismatchPolicy(p MismatchPolicy) Option {
	return func(r *SemanticRetriever) {
		r.policy = p
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *SemanticRetriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewSemanticRetriever(store port.EntryStore, opts ...Option) *SemanticRetriever {
	r := &SemanticRetriever{
		store:  store,
		policy: SkipMismatched,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the configured dimension mismatch policy.
func (r *SemanticRetriever) Policy() MismatchPolicy {
	return r.policy
}

// Retrieve returns the context bundle for the k entries most similar to query.
// An unloaded store yields an empty bundle whatever the arguments.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query []float32, k int) (domain.ContextBundle, error) {
	top, err := r.TopK(ctx, query, k)
	if err != nil {
		return domain.ContextBundle{}, err
	}
	return Format(top), nil
}

// TopK returns the ranked candidates behind Retrieve, most relevant first.
func (r *SemanticRetriever) TopK(ctx context.Context, query []float32, k int) ([]domain.ScoredCandidate, error) {
	// One load of the snapshot: emptiness and ranking must agree even if a
	// reload lands mid-call.
	entries := r.store.All()
	if len(entries) == 0 {
		return nil, nil
	}

	if len(query) == 0 {
		return nil, domain.ErrEmptyQuery
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidTopK, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates, err := r.score(entries, query)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (r *SemanticRetriever) score(entries []domain.VectorEntry, query []float32) ([]domain.ScoredCandidate, error) {
	candidates := make([]domain.ScoredCandidate, 0, len(entries))
	skipped := 0

	for i, entry := range entries {
		sim, err := CosineSimilarity(query, entry.Embedding)
		if err != nil {
			if r.policy == FailOnMismatch {
				return nil, fmt.Errorf("entry %d (%s): %w", i, entry.Source, err)
			}
			skipped++
			continue
		}
		candidates = append(candidates, domain.ScoredCandidate{Entry: entry, Score: sim})
	}

	if skipped > 0 {
		r.logger.Warn("excluded entries with mismatched embedding dimension",
			zap.Int("skipped", skipped),
			zap.Int("query_dimension", len(query)),
			zap.Int("entries", len(entries)))
	}
	return candidates, nil
}
