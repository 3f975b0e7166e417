package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Invalidator is anything holding derived state that a vault change makes stale.
type Invalidator interface {
	Invalidate()
}

// EventCallback is called after a watcher-observed change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch observes a locally mounted vault and invalidates inv whenever a file
// is created, written, removed or renamed outside this process. It blocks
// until ctx is cancelled.
//
// New directories are added to the watch list as they appear.
func Watch(ctx context.Context, vaultRoot string, inv Invalidator, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isTempName(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					inv.Invalidate()
					continue
				}
			}

			kind := eventKind(ev.Op)
			if kind == "" {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			inv.Invalidate()
			logger.Debug("watcher: invalidated", slog.String("path", rel), slog.String("op", kind))
			if cb != nil {
				cb(kind, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func eventKind(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "created"
	case op&fsnotify.Write != 0:
		return "updated"
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return "deleted"
	}
	return ""
}

func isTempName(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".vaultmcp-tmp-")
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
