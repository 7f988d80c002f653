package retriever

import (
	"regexp"
	"strings"

	"folio/internal/domain"
)

// ContextSeparator keeps snippets visually distinct in the prompt.
const ContextSeparator = "\n\n"

var extensionSuffix = regexp.MustCompile(`\.[A-Za-z][A-Za-z0-9]{0,7}$`)

// NormalizeSource strips a trailing file-extension-like suffix for display,
// e.g. "About.jsx" becomes "About".
func NormalizeSource(source string) string {
	s := strings.TrimSpace(source)
	s = extensionSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Format joins candidate texts in the given order and collects their
// normalized sources, dropping empty ones and keeping the first occurrence.
func Format(candidates []domain.ScoredCandidate) domain.ContextBundle {
	if len(candidates) == 0 {
		return domain.EmptyBundle()
	}

	texts := make([]string, 0, len(candidates))
	sources := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		texts = append(texts, c.Entry.Text)

		src := NormalizeSource(c.Entry.Source)
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}

	return domain.ContextBundle{
		ContextText: strings.Join(texts, ContextSeparator),
		Sources:     sources,
	}
}
