package domain

import "time"

// VectorEntry is one corpus record: a chunk of portfolio content and its embedding.
type VectorEntry struct {
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Dimension returns the length of the entry's embedding.
func (e VectorEntry) Dimension() int {
	return len(e.Embedding)
}

type ScoredCandidate struct {
	Entry VectorEntry
	Score float64
}

// ContextBundle is what a retrieval hands to prompt construction.
type ContextBundle struct {
	ContextText string   `json:"context"`
	Sources     []string `json:"sources"`
}

// EmptyBundle is the neutral result for an unloaded store or no candidates.
func EmptyBundle() ContextBundle {
	return ContextBundle{ContextText: "", Sources: []string{}}
}

// IsEmpty reports whether the bundle carries no context at all.
func (b ContextBundle) IsEmpty() bool {
	return b.ContextText == "" && len(b.Sources) == 0
}

// StoreStats describes the snapshot currently held by a store.
type StoreStats struct {
	Loaded     bool      `json:"loaded"`
	Entries    int       `json:"entries"`
	Dimension  int       `json:"dimension"`
	Origin     string    `json:"origin,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
	Generation uint64    `json:"generation"`
}

// Portfolio section names used as corpus sources after normalization.
const (
	SectionAbout      = "About"
	SectionExperience = "Experience"
	SectionSkills     = "Skills"
	SectionProjects   = "Projects"
	SectionResume     = "Resume"
)

var knownSections = []string{
	SectionAbout,
	SectionExperience,
	SectionSkills,
	SectionProjects,
	SectionResume,
}

// KnownSections returns the portfolio section names in display order.
func KnownSections() []string {
	out := make([]string, len(knownSections))
	copy(out, knownSections)
	return out
}

// KnownSection reports whether name is one of the portfolio sections.
func KnownSection(name string) bool {
	for _, s := range knownSections {
		if s == name {
			return true
		}
	}
	return false
}
