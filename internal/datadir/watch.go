package datadir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often the watcher re-stats the directory when
// no filesystem event arrives.
const DefaultPollInterval = 5 * time.Second

// Watcher reports when the data directory is removed or moved away.
//
// The parent directory is watched as well as the directory itself: files
// held open inside the directory keep its inode alive, so removing it does
// not always produce an event on the directory. Remove and rename events
// inside the directory, and a poll ticker for mounts that emit no events,
// trigger a re-stat.
type Watcher struct {
	dir      *Dir
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	interval time.Duration
}

// NewWatcher registers the watches immediately, so events that happen
// between NewWatcher and Run are not lost. A non-positive interval means
// DefaultPollInterval.
func (d *Dir) NewWatcher(logger *slog.Logger, interval time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(d.path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch data dir %s: %w", d.path, err)
	}
	if parent := filepath.Dir(d.path); parent != d.path {
		if err := w.Add(parent); err != nil {
			logger.Warn("Cannot watch data dir parent, relying on polling", "path", parent, "error", err)
		}
	}
	return &Watcher{dir: d, watcher: w, logger: logger, interval: interval}, nil
}

// Close releases the watches. Run closes the watcher itself; Close is for
// a Watcher that is never run.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run blocks until ctx is done (returns nil) or the directory is lost
// (returns an error wrapping ErrMountLost).
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Data dir watcher started", "path", w.dir.path, "poll_interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := w.verify("poll"); err != nil {
				return err
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			switch {
			case name == w.dir.path:
				w.logger.Error("Data dir lost", "path", w.dir.path, "op", event.Op.String())
				return fmt.Errorf("%w: %s (%s)", ErrMountLost, w.dir.path, event.Op)
			case filepath.Dir(name) == w.dir.path:
				if err := w.verify(event.Op.String()); err != nil {
					return err
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("Data dir watcher error", "error", err)
		}
	}
}

// verify re-stats the directory and reports it lost when it is gone or
// replaced by something that is not a directory.
func (w *Watcher) verify(trigger string) error {
	err := w.dir.check()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMissing) || errors.Is(err, ErrNotDirectory) {
		w.logger.Error("Data dir lost", "path", w.dir.path, "trigger", trigger, "error", err)
		return fmt.Errorf("%w: %v", ErrMountLost, err)
	}
	w.logger.Warn("Data dir check failed", "path", w.dir.path, "error", err)
	return nil
}
