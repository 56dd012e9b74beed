// Package watcher reports changes made to durable store files by other processes.
package watcher

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce collapses the burst of events produced by one write.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a set of files and calls onChange, debounced, when any of
// them is created, written, renamed over or removed.
type Watcher struct {
	files    map[string]struct{}
	dirs     map[string]struct{}
	onChange func(context.Context)
	ignore   func(path string) bool
	debounce time.Duration
	logger   *logrus.Logger

	fs     *fsnotify.Watcher
	mutex  sync.Mutex
	timer  *time.Timer
	done   chan struct{}
	closer sync.Once
}

// New creates a watcher for paths. Nothing is watched until Start.
func New(paths []string, onChange func(context.Context), debounce time.Duration, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(paths)),
		dirs:     make(map[string]struct{}),
		onChange: onChange,
		debounce: debounce,
		logger:   logger,
		done:     make(chan struct{}),
	}
	for _, p := range paths {
		clean := filepath.Clean(p)
		w.files[clean] = struct{}{}
		w.dirs[filepath.Dir(clean)] = struct{}{}
	}
	return w
}

// IgnoreWhen skips events on files for which skip returns true, such as
// files whose content this process wrote itself. Call it before Start.
func (w *Watcher) IgnoreWhen(skip func(path string) bool) *Watcher {
	w.ignore = skip
	return w
}

// Start begins watching. The parent directories are watched rather than
// the files, so files replaced by rename keep being observed.
func (w *Watcher) Start(ctx context.Context) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	for dir := range w.dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.fs = fs

	go w.loop(ctx)

	w.logger.WithField("files", len(w.files)).Info("Store watcher started")
	return nil
}

// loop selects on watcher channels and dispatches events.
func (w *Watcher) loop(ctx context.Context) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Store watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if _, watched := w.files[name]; !watched {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.ignore != nil && w.ignore(name) {
		w.logger.WithField("file", name).Debug("Ignoring own store write")
		return
	}

	w.logger.WithFields(logrus.Fields{
		"file":  event.Name,
		"event": event.Op.String(),
	}).Debug("Store file changed")

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange(ctx)
	})
}

// Close stops the watcher (idempotent).
func (w *Watcher) Close() error {
	var err error
	w.closer.Do(func() {
		close(w.done)

		w.mutex.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mutex.Unlock()

		if w.fs != nil {
			err = w.fs.Close()
		}
	})
	return err
}
