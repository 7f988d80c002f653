package memstore

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"folio/internal/domain"
)

// VectorStore holds the corpus in memory. The snapshot is immutable once
// published; Replace swaps in a new one so readers never see a partial load.
type VectorStore struct {
	snap atomic.Pointer[snapshot]
	gen  atomic.Uint64
}

type snapshot struct {
	entries    []domain.VectorEntry
	dimension  int
	origin     string
	loadedAt   time.Time
	generation uint64
}

// NewVectorStore creates a store in the empty state.
func NewVectorStore() *VectorStore {
	s := &VectorStore{}
	s.snap.Store(&snapshot{})
	return s
}

// NewVectorStoreWith creates a store already holding entries.
func NewVectorStoreWith(entries []domain.VectorEntry, origin string) (*VectorStore, error) {
	s := NewVectorStore()
	if err := s.Replace(entries, origin); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace validates entries and publishes them as the new snapshot.
// On error the current snapshot is left untouched.
func (s *VectorStore) Replace(entries []domain.VectorEntry, origin string) error {
	dim, err := ValidateEntries(entries)
	if err != nil {
		return err
	}

	owned := make([]domain.VectorEntry, len(entries))
	for i, e := range entries {
		emb := make([]float32, len(e.Embedding))
		copy(emb, e.Embedding)
		owned[i] = domain.VectorEntry{Source: e.Source, Text: e.Text, Embedding: emb}
	}

	s.snap.Store(&snapshot{
		entries:    owned,
		dimension:  dim,
		origin:     origin,
		loadedAt:   time.Now(),
		generation: s.gen.Add(1),
	})
	return nil
}

func (s *VectorStore) IsLoaded() bool {
	return len(s.snap.Load().entries) > 0
}

// All returns the entries of the current snapshot in load order.
func (s *VectorStore) All() []domain.VectorEntry {
	return s.snap.Load().entries
}

func (s *VectorStore) Len() int {
	return len(s.snap.Load().entries)
}

// Dimension returns the embedding dimension shared by every entry, or 0 when empty.
func (s *VectorStore) Dimension() int {
	return s.snap.Load().dimension
}

func (s *VectorStore) Stats() domain.StoreStats {
	cur := s.snap.Load()
	return domain.StoreStats{
		Loaded:     len(cur.entries) > 0,
		Entries:    len(cur.entries),
		Dimension:  cur.dimension,
		Origin:     cur.origin,
		LoadedAt:   cur.loadedAt,
		Generation: cur.generation,
	}
}

// ValidateEntries checks the entry invariants and returns the shared dimension.
// An empty slice is valid and has dimension 0.
func ValidateEntries(entries []domain.VectorEntry) (int, error) {
	dim := 0
	for i, e := range entries {
		if e.Text == "" {
			return 0, fmt.Errorf("%w: entry %d has empty text", domain.ErrInvalidEntry, i)
		}
		if len(e.Embedding) == 0 {
			return 0, fmt.Errorf("%w: entry %d has no embedding", domain.ErrInvalidEntry, i)
		}
		if i == 0 {
			dim = len(e.Embedding)
		} else if len(e.Embedding) != dim {
			return 0, fmt.Errorf("%w: entry %d has dimension %d, corpus has %d",
				domain.ErrDimensionMismatch, i, len(e.Embedding), dim)
		}
		for _, v := range e.Embedding {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, fmt.Errorf("%w: entry %d has a non-finite component", domain.ErrInvalidEntry, i)
			}
		}
	}
	return dim, nil
}
