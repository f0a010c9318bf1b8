package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"hyprwall/internal/logging"
)

// sessionWatcher signals when the session file is written or replaced by
// another invocation.
type sessionWatcher struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	events  chan struct{}
	once    sync.Once
}

func newSessionWatcher(path string, logger *slog.Logger) (*sessionWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &sessionWatcher{
		path:    abs,
		logger:  logger,
		watcher: watcher,
		events:  make(chan struct{}, 1),
	}, nil
}

// Start watches the directory holding the session file. Atomic saves replace
// the inode, so watching the file itself would miss them.
func (w *sessionWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		_ = w.watcher.Close()
		return fmt.Errorf("watch session directory %s: %w", dir, err)
	}
	go w.loop(ctx)
	return nil
}

func (w *sessionWatcher) loop(ctx context.Context) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("session file changed", logging.String("op", event.Op.String()))
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "session_watch_error"),
				logging.String(logging.FieldErrorHint, "session changes are picked up at the next poll"),
				logging.String(logging.FieldImpact, "override changes may apply late"),
			)
		}
	}
}

// Events yields coalesced change notifications. Nil-safe.
func (w *sessionWatcher) Events() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.events
}

// Stop closes the underlying watcher.
func (w *sessionWatcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		_ = w.watcher.Close()
	})
}
