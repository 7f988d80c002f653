package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"folio/internal/domain"
)

// FileLoader reads embeddings files matching glob patterns under a root
// directory. Files are read in sorted path order and concatenated.
type FileLoader struct {
	root     string
	patterns []string
	logger   *zap.Logger
}

func NewFileLoader(root string, patterns []string, logger *zap.Logger) (*FileLoader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no corpus patterns configured")
	}
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimPrefix(p, "./"))
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid corpus pattern %q", p)
		}
		clean = append(clean, p)
	}
	return &FileLoader{root: root, patterns: clean, logger: logger}, nil
}

func (l *FileLoader) Origin() string {
	return strings.Join(l.patterns, ",")
}

func (l *FileLoader) Root() string {
	return l.root
}

func (l *FileLoader) Patterns() []string {
	out := make([]string, len(l.patterns))
	copy(out, l.patterns)
	return out
}

// Files resolves the patterns to existing files, sorted and deduplicated.
func (l *FileLoader) Files() ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range l.patterns {
		var matches []string
		var err error
		if filepath.IsAbs(pattern) {
			matches, err = doublestar.FilepathGlob(pattern)
		} else {
			var rel []string
			rel, err = doublestar.Glob(os.DirFS(l.root), pattern)
			for _, m := range rel {
				matches = append(matches, filepath.Join(l.root, filepath.FromSlash(m)))
			}
		}
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Load returns the entries of every matching file. No matching file is not
// an error: the corpus is simply absent and the store stays empty.
func (l *FileLoader) Load(ctx context.Context) ([]domain.VectorEntry, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		l.logger.Warn("no corpus file found, retrieval stays disabled",
			zap.String("root", l.root),
			zap.Strings("patterns", l.patterns))
		return nil, nil
	}

	var all []domain.VectorEntry
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := ReadFile(path, l.logger)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("read corpus file",
			zap.String("path", path),
			zap.Int("entries", len(entries)))
		all = append(all, entries...)
	}

	// files are sanitized one at a time; dimensions must also agree across them
	return Sanitize(all, l.Origin(), l.logger), nil
}

// ReadFile decodes a single embeddings file, as used by import.
func ReadFile(path string, logger *zap.Logger) ([]domain.VectorEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	return Decode(f, path, logger)
}
