package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/docstage/docstage/internal/state"
)

// CandidateSubmitter accepts validated-candidate submissions.
type CandidateSubmitter interface {
	Submit(ctx context.Context, candidates []Candidate) error
}

// resyncAPI is the remote surface the resyncer needs.
type resyncAPI interface {
	ExternalConverter
	DeleteRemoteItem(ctx context.Context, id string) error
}

// Resyncer periodically re-converts every external source recorded in
// the journal and refreshes sections whose content changed upstream.
// Unchanged sections are left alone, so a quiet source costs one
// conversion call per pass and nothing more.
type Resyncer struct {
	api       resyncAPI
	journal   *state.Journal
	submitter CandidateSubmitter
	logger    *slog.Logger
	interval  time.Duration
}

// NewResyncer builds a resyncer running one pass every interval.
func NewResyncer(api resyncAPI, journal *state.Journal, submitter CandidateSubmitter, logger *slog.Logger, interval time.Duration) *Resyncer {
	return &Resyncer{
		api:       api,
		journal:   journal,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "resync")),
		interval:  interval,
	}
}

// Run executes resync passes until ctx is cancelled. A pass failure is
// logged and the next tick tries again; resync is maintenance, never a
// reason to take the service down.
func (r *Resyncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.resyncPass(ctx)
		}
	}
}

// resyncPass re-converts each distinct source once and reconciles the
// journal's view of it: changed sections are resubmitted, vanished
// sections are retired. The stale remote copy is deleted best-effort;
// a failed delete leaves an orphan remotely but never blocks the
// refresh.
func (r *Resyncer) resyncPass(ctx context.Context) {
	entries, err := r.journal.External()
	if err != nil {
		r.logger.Warn("listing journaled external items failed", slog.String("error", err.Error()))

		return
	}

	bySource := make(map[string]map[string]state.UploadedItem)
	for _, e := range entries {
		if bySource[e.SourceRef] == nil {
			bySource[e.SourceRef] = make(map[string]state.UploadedItem)
		}

		bySource[e.SourceRef][e.SectionID] = e
	}

	for source, sections := range bySource {
		if ctx.Err() != nil {
			return
		}

		r.resyncSource(ctx, source, sections)
	}
}

func (r *Resyncer) resyncSource(ctx context.Context, source string, known map[string]state.UploadedItem) {
	candidates, err := ConvertExternal(ctx, r.api, source)
	if err != nil {
		r.logger.Warn("re-conversion failed",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)

		return
	}

	var changed []Candidate

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		prov, ok := c.Provenance.(ExternalProvenance)
		if !ok {
			continue
		}

		seen[prov.SectionID] = true

		old, exists := known[prov.SectionID]
		if exists && old.ContentHash == prov.ContentHash {
			continue
		}

		changed = append(changed, c)
		if exists {
			r.retire(ctx, old)
		}
	}

	// Sections the source no longer produces.
	for sectionID, old := range known {
		if !seen[sectionID] {
			r.retire(ctx, old)
		}
	}

	if len(changed) == 0 {
		r.logger.Debug("source unchanged", slog.String("source", source))

		return
	}

	r.logger.Info("refreshing external source",
		slog.String("source", source),
		slog.Int("sections", len(changed)),
	)

	if err := r.submitter.Submit(ctx, changed); err != nil {
		r.logger.Warn("resubmission failed",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
	}
}

// retire removes a stale section's journal entry and deletes its remote
// copy best-effort.
func (r *Resyncer) retire(ctx context.Context, old state.UploadedItem) {
	if err := r.journal.Delete(old.Token); err != nil {
		r.logger.Warn("journal delete failed", slog.String("token", old.Token), slog.String("error", err.Error()))
	}

	if err := r.api.DeleteRemoteItem(ctx, old.RemoteID); err != nil {
		r.logger.Warn("stale remote delete failed",
			slog.String("remote_id", old.RemoteID),
			slog.String("error", err.Error()),
		)
	}
}
