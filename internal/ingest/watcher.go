package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DropSubmitter receives the paths the watcher has decided are ready.
type DropSubmitter interface {
	AddDrop(ctx context.Context, paths []string) error
}

// inboxQuietPeriod is how long a path must stay silent before it is
// submitted. Copies into the inbox produce bursts of writes; flushing
// before the burst ends would upload half a file.
const inboxQuietPeriod = 500 * time.Millisecond

// InboxWatcher turns an inbox directory into a submission source: new
// top-level entries (files or whole directory trees) are picked up and
// handed to the submitter once they stop changing.
type InboxWatcher struct {
	dir       string
	submitter DropSubmitter
	logger    *slog.Logger

	quiet time.Duration
}

// NewInboxWatcher creates a watcher for dir feeding submitter.
func NewInboxWatcher(dir string, submitter DropSubmitter, logger *slog.Logger) *InboxWatcher {
	return &InboxWatcher{
		dir:       dir,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "inbox")),
		quiet:     inboxQuietPeriod,
	}
}

// Watch monitors the inbox until ctx is cancelled. Only the inbox root
// is watched: a dropped directory is submitted as a tree, so events
// inside it matter only as "still being written" signals, which the
// root-level timestamps already provide for atomic moves. Entries
// present before Watch starts are not submitted; the inbox is an event
// source, not a queue to drain.
func (w *InboxWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching inbox %s: %w", w.dir, err)
	}

	w.logger.Info("watching inbox", slog.String("dir", w.dir))

	// pending maps an inbox path to the time its last event arrived.
	pending := make(map[string]time.Time)

	flush := time.NewTimer(w.quiet)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}

			w.handleEvent(event, pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}

			w.logger.Warn("inbox watch error", slog.String("error", err.Error()))

		case <-flush.C:
			w.flushQuiet(ctx, pending)
			// Rearm only after firing: resetting on every event would
			// let a continuously busy inbox postpone the flush forever,
			// starving entries that are themselves already quiet.
			flush.Reset(w.quiet)
		}
	}
}

func (w *InboxWatcher) handleEvent(event fsnotify.Event, pending map[string]time.Time) {
	name := event.Name

	if w.shouldIgnore(name) {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// Entry left the inbox before it settled.
		delete(pending, name)

		return
	}

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		pending[name] = time.Now()
	}
}

// flushQuiet submits every pending entry whose quiet period has
// elapsed. Submission errors surface as log lines; the entry is not
// retried, matching how a manual drop behaves.
func (w *InboxWatcher) flushQuiet(ctx context.Context, pending map[string]time.Time) {
	now := time.Now()

	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= w.quiet {
			ready = append(ready, path)
		}
	}

	if len(ready) == 0 {
		return
	}

	for _, path := range ready {
		delete(pending, path)
	}

	w.logger.Info("submitting inbox entries", slog.Int("count", len(ready)))

	if err := w.submitter.AddDrop(ctx, ready); err != nil {
		w.logger.Warn("inbox submission failed", slog.String("error", err.Error()))
	}
}

// shouldIgnore filters hidden files and editor temp files out of the
// inbox stream.
func (w *InboxWatcher) shouldIgnore(absPath string) bool {
	name := filepath.Base(absPath)

	if strings.HasPrefix(name, ".") {
		return true
	}

	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".part") {
		return true
	}

	return false
}
