package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	dserrors "github.com/docstage/docstage/internal/errors"
	"github.com/docstage/docstage/internal/remote"
	"github.com/docstage/docstage/internal/state"
)

//go:generate mockgen -source=service.go -destination=mock_remote_api_test.go -package=ingest RemoteAPI

// RemoteAPI is everything the ingestion subsystem needs from the
// remote service.
type RemoteAPI interface {
	Uploader
	DeleteRemoteItem(ctx context.Context, id string) error
	ConvertExternalSource(ctx context.Context, source string) ([]remote.Section, error)
	ListUnusedRemoteItems(ctx context.Context) ([]remote.Document, error)
	GetUploadConfig(ctx context.Context) (*remote.UploadConfig, error)
	GetAllowedExtensions(ctx context.Context) ([]string, error)
}

// op kinds carried on the service channel. Each op holds its own reply
// channel, so callers block only on their own request.
type submitOp struct {
	candidates []Candidate
	reply      chan submitResult
}

// submitResult reports how many candidates a submission admitted.
type submitResult struct {
	accepted int
	err      error
}

type removeOp struct {
	token string
	reply chan error
}

type retryOp struct {
	token string
	reply chan error
}

type itemsOp struct {
	reply chan []Item
}

type readyOp struct {
	reply chan bool
}

// Service owns the item ledger and runs the ingestion event loop. All
// state mutations happen on the single goroutine inside Run; public
// methods communicate with it over channels, which is what makes the
// ledger's bare maps safe.
type Service struct {
	api       RemoteAPI
	journal   *state.Journal
	logger    *slog.Logger
	batchSize int

	ledger     *Ledger
	rules      Rules
	cfg        remote.UploadConfig
	reconciled bool

	ops     chan any
	updates chan update
	notices chan Notice
	ready   chan struct{}

	transfers sync.WaitGroup
}

// NewService wires a Service around a remote API and a local journal.
// The journal may be nil, in which case settled uploads are simply not
// persisted across runs.
func NewService(api RemoteAPI, journal *state.Journal, logger *slog.Logger) *Service {
	return &Service{
		api:       api,
		journal:   journal,
		logger:    logger.With(slog.String("component", "ingest")),
		batchSize: fallbackBatchSize,
		ledger:    NewLedger(),
		ops:       make(chan any),
		updates:   make(chan update, updateChanSize),
		notices:   make(chan Notice, noticeChanSize),
		ready:     make(chan struct{}),
	}
}

// Run starts the event loop and blocks until ctx is cancelled. It
// fetches the remote upload policy once, merges pre-existing remote
// items, and only then starts accepting operations.
func (s *Service) Run(ctx context.Context) error {
	cfg, err := s.api.GetUploadConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetching upload config: %w", err)
	}

	s.cfg = *cfg

	exts, err := s.api.GetAllowedExtensions(ctx)
	if err != nil {
		return fmt.Errorf("fetching allowed extensions: %w", err)
	}

	s.rules = NewRules(exts, s.cfg.SizeLimitBytes)

	if err := s.reconcileOnce(ctx); err != nil {
		s.logger.Warn("remote reconciliation failed", slog.String("error", err.Error()))
		s.sendNotice(errorNotice("could not list existing remote items: " + err.Error()))
	}

	s.logger.Info("ingestion service ready",
		slog.Int64("size_limit_bytes", s.cfg.SizeLimitBytes),
		slog.Int("batch_count_limit", s.cfg.BatchCountLimit),
		slog.Int("total_count_limit", s.cfg.TotalCountLimit),
	)
	close(s.ready)

	worker := &transferWorker{api: s.api, updates: s.updates, logger: s.logger}

	for {
		select {
		case <-ctx.Done():
			s.drainTransfers()

			return ctx.Err()

		case u := <-s.updates:
			s.applyUpdate(u)

		case raw := <-s.ops:
			switch op := raw.(type) {
			case submitOp:
				accepted, err := s.handleSubmit(ctx, worker, op.candidates)
				op.reply <- submitResult{accepted: accepted, err: err}
			case removeOp:
				op.reply <- s.handleRemove(op.token)
			case retryOp:
				op.reply <- s.handleRetry(ctx, worker, op.token)
			case itemsOp:
				op.reply <- s.ledger.Items()
			case readyOp:
				op.reply <- s.ledger.StoredCount() > 0
			}
		}
	}
}

// drainTransfers applies the updates still in flight when the loop is
// told to stop, so settled uploads reach the journal even during
// shutdown. The updates channel is never closed: the HTTP transport can
// fire a late progress tick from its own goroutine after the last
// worker has finished, and a send on a closed channel would panic.
func (s *Service) drainTransfers() {
	done := make(chan struct{})
	go func() {
		s.transfers.Wait()
		close(done)
	}()

	for {
		select {
		case u := <-s.updates:
			s.applyUpdate(u)
		case <-done:
			for {
				select {
				case u := <-s.updates:
					s.applyUpdate(u)
				default:
					return
				}
			}
		}
	}
}

// Started is closed once the service has fetched its upload policy and
// is accepting operations.
func (s *Service) Started() <-chan struct{} { return s.ready }

// FilesReady reports whether at least one item is durably stored. Hosts
// use it to gate progression to whatever consumes the uploads.
func (s *Service) FilesReady(ctx context.Context) (bool, error) {
	op := readyOp{reply: make(chan bool, 1)}

	select {
	case s.ops <- op:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ready := <-op.reply:
		return ready, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Notices exposes the user-facing notification stream. The channel is
// buffered; when nobody drains it, new notices are dropped rather than
// stalling the event loop.
func (s *Service) Notices() <-chan Notice { return s.notices }

// Submit validates candidates and queues the accepted ones for upload.
// Candidates that fail validation are reported through the notice
// stream and skipped; the rest upload in the background. Submitting
// more candidates than the per-submission limit rejects the whole
// submission.
func (s *Service) Submit(ctx context.Context, candidates []Candidate) error {
	_, err := s.submit(ctx, candidates)

	return err
}

func (s *Service) submit(ctx context.Context, candidates []Candidate) (int, error) {
	op := submitOp{candidates: candidates, reply: make(chan submitResult, 1)}

	select {
	case s.ops <- op:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case res := <-op.reply:
		return res.accepted, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// AddDrop expands filesystem paths (files and directory trees) into
// candidates and submits them.
func (s *Service) AddDrop(ctx context.Context, paths []string) error {
	candidates, err := ExpandDrop(ctx, paths)
	if err != nil {
		return fmt.Errorf("expanding dropped paths: %w", err)
	}

	return s.Submit(ctx, candidates)
}

// ImportExternal converts an external source into markdown sections
// and submits the synthesized documents. Conversion happens on the
// caller's goroutine so a slow conversion never stalls the event loop.
func (s *Service) ImportExternal(ctx context.Context, source string) error {
	candidates, err := ConvertExternal(ctx, s.api, source)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		s.sendNotice(infoNotice("source produced no importable content"))

		return nil
	}

	accepted, err := s.submit(ctx, candidates)
	if err != nil {
		return err
	}

	// Sections the validator rejected raised their own error notices.
	if accepted > 0 {
		s.sendNotice(successNotice(fmt.Sprintf("imported %d section(s) from source", accepted)))
	}

	return nil
}

// Remove retires an item locally and, when it was already stored,
// deletes the remote copy best-effort in the background.
func (s *Service) Remove(ctx context.Context, token string) error {
	op := removeOp{token: token, reply: make(chan error, 1)}

	return s.roundTrip(ctx, op, op.reply)
}

// Retry resubmits a failed item as a fresh single-item upload.
func (s *Service) Retry(ctx context.Context, token string) error {
	op := retryOp{token: token, reply: make(chan error, 1)}

	return s.roundTrip(ctx, op, op.reply)
}

// Items returns an order-preserving snapshot of the ledger.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	op := itemsOp{reply: make(chan []Item, 1)}

	select {
	case s.ops <- op:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case items := <-op.reply:
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) roundTrip(ctx context.Context, op any, reply chan error) error {
	select {
	case s.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleSubmit runs on the event loop. It returns how many candidates
// it admitted to the ledger.
func (s *Service) handleSubmit(ctx context.Context, worker *transferWorker, candidates []Candidate) (int, error) {
	if s.cfg.BatchCountLimit > 0 && len(candidates) > s.cfg.BatchCountLimit {
		return 0, fmt.Errorf("%w: %d candidates exceed the per-submission limit of %d",
			dserrors.ErrTooManyItems, len(candidates), s.cfg.BatchCountLimit)
	}

	accepted := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if errs := s.rules.Validate(c.Name, c.Size()); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}

			s.logger.Warn("candidate rejected",
				slog.String("name", c.Name),
				slog.String("reason", strings.Join(msgs, "; ")),
			)
			s.sendNotice(errorNotice(c.Name + ": " + strings.Join(msgs, "; ")))

			continue
		}

		accepted = append(accepted, c)
	}

	if len(accepted) == 0 {
		return 0, nil
	}

	if s.cfg.TotalCountLimit > 0 && s.ledger.Len()+len(accepted) > s.cfg.TotalCountLimit {
		return 0, fmt.Errorf("%w: adding %d items would exceed the overall limit of %d",
			dserrors.ErrTooManyItems, len(accepted), s.cfg.TotalCountLimit)
	}

	jobs := make([]uploadJob, 0, len(accepted))
	for _, c := range accepted {
		item := newItem(c)
		s.ledger.Append(item)
		jobs = append(jobs, uploadJob{token: item.Token, name: item.Name, mimeType: item.MIMEType, content: item.Content})
	}

	s.logger.Info("submission accepted",
		slog.Int("accepted", len(accepted)),
		slog.Int("rejected", len(candidates)-len(accepted)),
	)

	s.transfers.Add(1)
	go func() {
		defer s.transfers.Done()
		runBatches(ctx, worker, jobs, s.batchSize, s.logger)
	}()

	return len(accepted), nil
}

// handleRemove runs on the event loop. The item disappears from the
// ledger immediately; remote cleanup is best-effort and never blocks
// or fails the removal.
func (s *Service) handleRemove(token string) error {
	item, ok := s.ledger.Get(token)
	if !ok {
		return fmt.Errorf("%w: %s", dserrors.ErrItemNotFound, token)
	}

	s.ledger.Remove(token)

	if item.Remote == nil {
		return nil
	}

	remoteID := item.Remote.ID
	name := item.Name
	s.transfers.Add(1)
	go func() {
		defer s.transfers.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.api.DeleteRemoteItem(ctx, remoteID); err != nil {
			s.logger.Warn("remote delete failed",
				slog.String("remote_id", remoteID),
				slog.String("error", err.Error()),
			)
			s.sendNotice(errorNotice("could not delete remote copy of " + name + ": " + err.Error()))
		}
	}()

	if s.journal != nil {
		if err := s.journal.Delete(token); err != nil {
			s.logger.Warn("journal delete failed", slog.String("token", token), slog.String("error", err.Error()))
		}
	}

	return nil
}

// handleRetry runs on the event loop. Only failed items are eligible;
// the retried item keeps its token and ledger position.
func (s *Service) handleRetry(ctx context.Context, worker *transferWorker, token string) error {
	item, ok := s.ledger.Get(token)
	if !ok {
		return fmt.Errorf("%w: %s", dserrors.ErrItemNotFound, token)
	}

	if !s.ledger.Requeue(token) {
		return fmt.Errorf("item %q is not in a failed state", item.Name)
	}

	job := uploadJob{token: item.Token, name: item.Name, mimeType: item.MIMEType, content: item.Content}

	s.transfers.Add(1)
	go func() {
		defer s.transfers.Done()
		worker.transfer(ctx, job)
	}()

	return nil
}

// applyUpdate runs on the event loop. The ledger drops updates for
// tokens that were removed while the transfer was in flight.
func (s *Service) applyUpdate(u update) {
	switch u.kind {
	case updateProgress:
		s.ledger.SetProgress(u.token, u.pct)

	case updateSettled:
		if !s.ledger.Settle(u.token, u.doc) {
			return
		}

		s.persistSettled(u.token, u.doc)

	case updateFailed:
		s.ledger.Fail(u.token, u.diagnostic)
	}
}

func (s *Service) persistSettled(token string, doc *remote.Document) {
	if s.journal == nil {
		return
	}

	entry := state.UploadedItem{Token: token, RemoteID: doc.ID, Name: doc.Name, UploadedAt: time.Now().UnixMilli()}
	if item, ok := s.ledger.Get(token); ok {
		if prov, isExternal := item.Provenance.(ExternalProvenance); isExternal {
			entry.SourceRef = prov.SourceRef
			entry.SectionID = prov.SectionID
			entry.ContentHash = prov.ContentHash
		}
	}

	if err := s.journal.Put(entry); err != nil {
		s.logger.Warn("journal write failed", slog.String("token", token), slog.String("error", err.Error()))
	}
}

// sendNotice never blocks; the stream is advisory.
func (s *Service) sendNotice(n Notice) {
	select {
	case s.notices <- n:
	default:
		s.logger.Debug("notice dropped", slog.String("message", n.Message))
	}
}
