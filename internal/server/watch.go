package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses bursts of file events into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc handles a batch of changed paths. Returned errors are logged.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher calls a ChangeFunc when files under its roots change.
type Watcher struct {
	roots    []string
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger
	ready    chan struct{}
}

// NewWatcher watches roots recursively. Missing roots are skipped.
func NewWatcher(roots []string, debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		roots:    roots,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With("component", "watcher"),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the initial directories are being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled. A failing ChangeFunc does not stop it.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	watched := 0
	for _, root := range w.roots {
		n, err := w.addTree(fw, root)
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("watch path missing, skipping", "path", root)
			continue
		}
		if err != nil {
			return err
		}
		watched += n
	}
	w.logger.Info("watching for changes", "roots", strings.Join(w.roots, ", "), "dirs", watched)
	close(w.ready)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if _, err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("could not watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			w.logger.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.logger.Info("sources changed", "files", len(changed), "first", changed[0])
			if err := w.onChange(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignored(p) {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		count++
		return nil
	})
	return count, err
}

// ignored reports dotfiles and editor backup files.
func ignored(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
