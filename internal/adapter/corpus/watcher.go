package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 250 * time.Millisecond

// Watcher calls onChange after the files matched by a FileLoader change.
// Bursts of events (editors often write, chmod and rename in one save) are
// collapsed into a single call once things stay quiet for the debounce window.
// Only the static base directory of each pattern is watched, so new
// subdirectories under a "**" pattern are not picked up until restart.
type Watcher struct {
	loader   *FileLoader
	debounce time.Duration
	onChange func(context.Context)
	logger   *zap.Logger
	ready    chan struct{}
}

func NewWatcher(loader *FileLoader, debounce time.Duration, onChange func(context.Context), logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		loader:   loader,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the directories are being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	root, err := filepath.Abs(w.loader.Root())
	if err != nil {
		return fmt.Errorf("resolve corpus root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating corpus watcher: %w", err)
	}
	defer fw.Close()

	watched := 0
	for _, dir := range w.dirs(root) {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("cannot watch corpus directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.logger.Debug("watching corpus directory", zap.String("dir", dir))
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no corpus directory to watch under %s", root)
	}
	close(w.ready)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(root, event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.logger.Info("corpus changed, reloading")
			w.onChange(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) dirs(root string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, pattern := range w.loader.Patterns() {
		base, _ := doublestar.SplitPattern(pattern)
		dir := filepath.FromSlash(base)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func (w *Watcher) relevant(root string, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	for _, pattern := range w.loader.Patterns() {
		candidate := filepath.ToSlash(rel)
		if filepath.IsAbs(pattern) {
			candidate = filepath.ToSlash(name)
		}
		if ok, _ := doublestar.Match(pattern, candidate); ok {
			return true
		}
	}
	return false
}
