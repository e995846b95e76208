package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// importDebounce coalesces the bursts of write events editors produce.
const importDebounce = 300 * time.Millisecond

// ImportWatcher reloads a layout file into the editor whenever it changes
// on disk. Each reload is an undoable import.
type ImportWatcher struct {
	editor  *EditorService
	emitter EventEmitter
	logger  *log.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewImportWatcher(editor *EditorService, emitter EventEmitter, logger *log.Logger) *ImportWatcher {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ImportWatcher{editor: editor, emitter: emitter, logger: logger.WithPrefix("watch")}
}

// ImportFile reads path and imports it into the editor.
func (w *ImportWatcher) ImportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}
	if err := w.editor.Import(ctx, data); err != nil {
		w.emitter.Emit(ctx, EventImportFailed, err.Error())
		return err
	}
	w.emitter.Emit(ctx, EventImportApplied, path)
	return nil
}

// Watch starts watching path. The directory is watched rather than the
// file so that editors which replace the file on save keep working. Any
// previous watch is stopped.
func (w *ImportWatcher) Watch(ctx context.Context, path string) error {
	w.Stop()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("bad path %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.loop(watchCtx, watcher, absPath, done)

	w.logger.Info("watching", "file", absPath)
	return nil
}

func (w *ImportWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, absPath string, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, _ := filepath.Abs(event.Name); p != absPath {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(importDebounce, func() {
				if err := w.ImportFile(ctx, absPath); err != nil {
					w.logger.Error("import failed", "file", absPath, "err", err)
					return
				}
				w.logger.Info("imported", "file", absPath)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// Stop ends the current watch, if any.
func (w *ImportWatcher) Stop() {
	w.mu.Lock()
	watcher, cancel, done := w.watcher, w.cancel, w.done
	w.watcher, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}
