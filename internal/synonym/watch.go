package synonym

import (
	"context"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever the synonym table file changes.
// A bad file is logged and rejected; the active snapshot stays in place.
// Blocks until ctx is cancelled, so run it in its own goroutine.
func Watch(ctx context.Context, path string, r *Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logger.Info("watching synonym table", "path", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Error("read synonym table", "path", path, "error", err)
				continue
			}
			if err := r.LoadYAML(data); err != nil {
				logger.Error("synonym table rejected, keeping previous version", "path", path, "error", err)
				continue
			}
			logger.Info("synonym table reloaded", "path", path, "version", r.Snapshot().Version)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("synonym watcher error", "error", err)
		}
	}
}
