package workbook

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher evicts cache entries when files in a directory change, so edits
// show up before the mtime check would catch them on a coarse filesystem.
type Watcher struct {
	dir     string
	cache   *Cache
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

func NewWatcher(dir string, cache *Cache, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{dir: dir, cache: cache, logger: logger, watcher: w}, nil
}

// Run blocks until ctx is cancelled or the underlying watcher closes.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("watching data dir", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("data dir watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !Supported(event.Name) {
		return
	}
	w.cache.Invalidate(filepath.Clean(event.Name))
	w.logger.Debug("cache invalidated", zap.String("path", event.Name), zap.String("op", event.Op.String()))
}
