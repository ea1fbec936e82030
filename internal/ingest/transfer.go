package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/docstage/docstage/internal/remote"
)

// Uploader is the single-item transfer collaborator.
type Uploader interface {
	UploadItem(ctx context.Context, name, mimeType string, content []byte, onProgress remote.ProgressFunc) (*remote.Document, error)
}

// updateKind discriminates ledger update messages emitted by workers.
type updateKind int

const (
	updateProgress updateKind = iota
	updateSettled
	updateFailed
)

// update is a token-addressed ledger mutation. Workers emit these into
// the event loop instead of touching the ledger; updates for tokens the
// ledger no longer holds are dropped there.
type update struct {
	kind       updateKind
	token      string
	pct        int
	doc        *remote.Document
	diagnostic string
}

// uploadJob is the payload snapshot a worker carries. Snapshotting at
// submission keeps workers off the ledger entirely: a concurrent
// removal just makes the eventual updates no-ops.
type uploadJob struct {
	token    string
	name     string
	mimeType string
	content  []byte
}

// updateChanSize buffers worker updates so progress ticks do not stall
// transfers while the event loop is busy applying an earlier batch.
const updateChanSize = 256

// transferWorker performs single-item uploads and converts every
// outcome, success or failure, into ledger updates. It never lets an
// error escape past its own boundary.
type transferWorker struct {
	api     Uploader
	updates chan<- update
	logger  *slog.Logger
}

// transfer uploads one job and emits the terminal update. In-flight
// progress is reported in [0,100) strictly increasing; 100 is reserved
// for the settled update so a progressing item can never be mistaken
// for a stored one.
func (w *transferWorker) transfer(ctx context.Context, job uploadJob) {
	lastPct := -1

	doc, err := w.api.UploadItem(ctx, job.name, job.mimeType, job.content, func(sent, total int64) {
		if total <= 0 {
			return
		}

		pct := int(sent * 99 / total)
		if pct <= lastPct {
			return
		}

		lastPct = pct
		w.emitProgress(update{kind: updateProgress, token: job.token, pct: pct})
	})
	if err != nil {
		w.logger.Warn("item transfer failed",
			slog.String("token", job.token),
			slog.String("name", job.name),
			slog.String("error", err.Error()),
		)
		w.emit(update{kind: updateFailed, token: job.token, diagnostic: failureDiagnostic(err)})

		return
	}

	w.logger.Info("item stored remotely",
		slog.String("token", job.token),
		slog.String("name", job.name),
		slog.String("remote_id", doc.ID),
	)
	w.emit(update{kind: updateSettled, token: job.token, doc: doc})
}

// emit delivers a terminal update. The channel is never closed, so the
// send is always safe; the event loop (or the shutdown drain) consumes
// it.
func (w *transferWorker) emit(u update) {
	w.updates <- u
}

// emitProgress delivers a progress tick best-effort. The HTTP transport
// can keep reading the request body (and firing the progress callback)
// from its own goroutine after the upload call has returned, so a tick
// may arrive after the worker is done; it must never block or require a
// consumer. A dropped tick only costs display granularity.
func (w *transferWorker) emitProgress(u update) {
	select {
	case w.updates <- u:
	default:
	}
}

// failureDiagnostic converts a transfer error into the human-readable
// message attached to the failed item.
func failureDiagnostic(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "upload cancelled before completion"
	case errors.Is(err, context.DeadlineExceeded):
		return "upload timed out"
	case remote.IsTransient(err):
		return "temporary network or server problem: " + err.Error()
	default:
		return "upload rejected: " + err.Error()
	}
}
