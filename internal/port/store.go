package port

import "folio/internal/domain"

// EntryStore is the read side of the corpus held in memory.
type EntryStore interface {
	// IsLoaded reports whether at least one entry is held.
	IsLoaded() bool

	// All returns every entry of the current snapshot in load order.
	// The returned slice is shared and must not be modified.
	All() []domain.VectorEntry
}

// ReloadableStore can have its whole snapshot replaced.
type ReloadableStore interface {
	EntryStore
	Replace(entries []domain.VectorEntry, origin string) error
	Stats() domain.StoreStats
}
