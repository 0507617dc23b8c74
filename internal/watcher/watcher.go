// Package watcher reports changes to a single file. It watches the parent
// directory so editors that save by rename are still seen.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher.
type Options struct {
	// SettleDelay coalesces a burst of writes into one change.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 200 * time.Millisecond
	}
}

// Watcher signals on Changes after the watched file is written, created or
// renamed into place and then left alone for the settle delay.
type Watcher struct {
	path    string
	opts    Options
	logger  *slog.Logger
	fs      *fsnotify.Watcher
	changes chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	done     chan struct{}
	stopOnce sync.Once
}

// New watches path. The file's directory must exist; the file itself may
// appear later.
func New(path string, logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.setDefaults()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		opts:    opts,
		logger:  logger,
		fs:      fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}, nil
}

// Changes delivers one value per settled change. A pending value is not
// duplicated, so a slow reader sees at most one.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Start processes events until ctx is cancelled or Stop is called. It
// blocks.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watch error", "path", w.path, "error", err)
		}
	}
}

// Stop ends Start, cancels a pending change and releases the watch.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		w.stopped = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("watched file touched", "path", w.path, "op", ev.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.opts.SettleDelay)
		return
	}
	w.timer = time.AfterFunc(w.opts.SettleDelay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
