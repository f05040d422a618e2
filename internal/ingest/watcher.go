package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/tle"
)

// defaultDebounce coalesces the burst of events editors and copy tools emit
// for a single save.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a file source whenever it changes on disk.
type Watcher struct {
	loader   *Loader
	path     string
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a Watcher for path.
func NewWatcher(loader *Loader, path string, logger *zap.Logger) *Watcher {
	return &Watcher{loader: loader, path: path, debounce: defaultDebounce, logger: logger}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// atomic replace-by-rename saves are seen. Each change replaces the catalog
// with the file contents.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.logger.Info("watching TLE file", zap.String("path", abs))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("TLE file watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			src := Source{Kind: KindFile, Path: abs}
			if _, err := w.loader.LoadMode(ctx, src, tle.Replace); err != nil {
				w.logger.Warn("TLE file reload failed", zap.String("path", abs), zap.Error(err))
			}
		}
	}
}
