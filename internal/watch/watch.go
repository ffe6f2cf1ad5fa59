// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs a callback when a corpus file or directory changes.
// Bursts of filesystem events are collapsed into one call.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last event before the
// callback runs.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches one corpus path.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
}

// New returns a Watcher for path. A zero debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: path, debounce: debounce, logger: logger}
}

// Run watches until ctx is done, calling onChange after each burst of
// relevant events. Calls are serialized on the Run goroutine. Run returns
// nil when ctx is canceled.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}

	// A single file is watched through its directory so that editors that
	// replace the file on save are still seen.
	file := ""
	if info.IsDir() {
		if err := addTree(fw, w.path); err != nil {
			return err
		}
	} else {
		file = filepath.Clean(w.path)
		if err := fw.Add(filepath.Dir(file)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(file), err)
		}
	}
	w.logger.Info("watching corpus", zap.String("path", w.path), zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(evt, file) {
				continue
			}
			if evt.Op&fsnotify.Create != 0 && file == "" {
				if fi, err := os.Stat(evt.Name); err == nil && fi.IsDir() {
					if err := addTree(fw, evt.Name); err != nil {
						w.logger.Warn("watching new directory", zap.String("path", evt.Name), zap.Error(err))
					}
				}
			}
			w.logger.Debug("corpus changed", zap.String("path", evt.Name), zap.String("op", evt.Op.String()))
			timer.Reset(w.debounce)
		case <-timer.C:
			onChange()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event, file string) bool {
	if evt.Op == fsnotify.Chmod {
		return false
	}
	if file != "" {
		return filepath.Clean(evt.Name) == file
	}
	return !strings.HasPrefix(filepath.Base(evt.Name), ".")
}

// addTree adds root and every non-hidden directory below it.
func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
