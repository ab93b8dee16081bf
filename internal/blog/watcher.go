package blog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/bloggen/internal/storage"
)

// DefaultDebounce collapses bursts of file events (editor save dances,
// git checkouts) into a single rebuild.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc is invoked after a burst of relevant file events settles.
type ChangeFunc func()

// Watch starts an fsnotify watcher on root and calls onChange once per
// settled burst of events touching files with extension ext, or any
// directory change. It blocks until ctx is cancelled.
//
// New directories created at runtime are added to the watch list.
func Watch(ctx context.Context, root, ext string, debounce time.Duration, logger *slog.Logger, onChange ChangeFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}

			if ev.Op == fsnotify.Chmod {
				continue
			}
			// Removed or renamed directories carry no extension.
			if ext != "" && filepath.Ext(ev.Name) != ext && filepath.Ext(ev.Name) != "" {
				continue
			}
			logger.Debug("watcher: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Rebuilder returns a ChangeFunc that rebuilds the index from store and
// installs it in h. A failed rebuild is logged and the previous index stays
// live. after, if non-nil, runs with the new index, or with nil and the
// build error.
func Rebuilder(h *Holder, store storage.Reader, ext string, logger *slog.Logger, after func(*Blog, error)) ChangeFunc {
	return func() {
		b, err := Build(store, ext, logger)
		if err != nil {
			logger.Warn("watcher: rebuild failed, keeping previous index", slog.String("error", err.Error()))
			if after != nil {
				after(nil, err)
			}
			return
		}
		h.Swap(b)
		logger.Info("watcher: rebuilt", slog.Int("posts", b.Len()))
		if after != nil {
			after(b, nil)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
