// Package watch re-runs plan checks when snapshot files change. It wraps an
// fsnotify directory watcher with per-file debouncing, since exports tend to
// arrive as bursts of partial writes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is invoked with the path of a settled snapshot file.
type Handler func(path string)

// Watcher watches one directory for snapshot writes.
type Watcher struct {
	dir      string
	debounce time.Duration
	handler  Handler
	log      *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher. A zero debounce defaults to 500ms.
func New(dir string, debounce time.Duration, handler Handler, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		handler:  handler,
		log:      log,
		timers:   map[string]*time.Timer{},
	}
}

// isSnapshotFile filters for the snapshot document extensions.
func isSnapshotFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Run blocks watching the directory until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching for snapshot changes", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !isSnapshotFile(ev.Name) {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule arms or resets the debounce timer for one file.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.log.Debug("snapshot settled", zap.String("path", path))
		w.handler(path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
