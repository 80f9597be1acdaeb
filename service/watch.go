package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// BundleWatcher warns when the bundle file changes on disk while it is being
// served. It never reloads: the new bundle takes effect on restart.
type BundleWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewBundleWatcher watches the bundle's directory, so that atomic replaces
// by rename are seen as well as in-place writes.
func NewBundleWatcher(path string, logger *zap.Logger) (*BundleWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BundleWatcher{path: abs, watcher: watcher, logger: logger}, nil
}

// Run blocks until ctx is done.
func (w *BundleWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Warn("bundle file changed on disk; restart to serve it",
					zap.String("path", w.path),
					zap.String("op", event.Op.String()))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("bundle watcher error", zap.Error(err))
		}
	}
}
