// Package watcher turns filesystem activity under a corpus root into
// debounced change batches. It reports that notes changed, not what
// changed in them; the consumer clears its file cache and runs an
// indexing pass, which reconciles the store against disk.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet window when the caller does not set one.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches one corpus root recursively.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	root      string

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// New creates a watcher with the given debounce window.
func New(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(debounce),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches root until the context is cancelled or Stop is called.
// It blocks; run it in its own goroutine and consume Changes.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve watch root: %w", err)
	}
	w.root = abs

	if err := w.addRecursive(abs); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Changes returns the channel of debounced change batches. Each batch
// is a set of root-relative paths touched since the previous batch.
func (w *Watcher) Changes() <-chan []string {
	return w.debouncer.Output()
}

// Stop stops watching and closes the Changes channel.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

// handleEvent filters one fsnotify event into the debouncer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Chmod != 0 {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	rel = filepath.ToSlash(rel)

	if isHidden(rel) {
		return
	}

	// New directories must be added to the watch before files appear
	// inside them, or those files are invisible.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", rel, "error", err)
			}
			// Files may have landed before the watch was in place.
			w.debouncer.Add(rel)
			return
		}
	}

	// Deletes and renames can no longer be stat'ed for type; pass every
	// note-shaped path through and let the indexing pass sort it out.
	if !noteExtension(rel) && event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.debouncer.Add(rel)
}

// addRecursive watches dir and every non-hidden directory beneath it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether any element of a slash path is dotted.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// noteExtension reports whether a path looks like a note file.
func noteExtension(rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}
