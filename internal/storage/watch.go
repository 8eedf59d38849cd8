package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called for every key changed on disk.
// kind is one of "set" or "removed".
type ChangeCallback func(kind, key string)

// Watch reports key changes under the FS root until ctx is cancelled.
// Writes made by this process are reported as well, since Set renames a
// temp file into place.
func (f *FS) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", f.root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, isKey := keyFromFile(filepath.Base(ev.Name))
			if !isKey {
				continue
			}
			var kind string
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind = "set"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = "removed"
			default:
				continue
			}
			logger.Debug("watcher: key changed", slog.String("key", key), slog.String("op", kind))
			if cb != nil {
				cb(kind, key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
