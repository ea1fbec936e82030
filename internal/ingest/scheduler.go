package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// fallbackBatchSize bounds in-flight transfers when the remote config
// does not advertise a batch limit.
const fallbackBatchSize = 5

// runBatches drives a submission's jobs through the transfer worker in
// contiguous batches. Items inside one batch upload concurrently; the
// next batch starts only after every item in the current one has
// settled or failed. A failed item never blocks its batch, so a later
// batch is never starved by an earlier failure.
func runBatches(ctx context.Context, worker *transferWorker, jobs []uploadJob, batchSize int, logger *slog.Logger) {
	if batchSize <= 0 {
		batchSize = fallbackBatchSize
	}

	for start := 0; start < len(jobs); start += batchSize {
		if ctx.Err() != nil {
			failRemaining(worker, jobs[start:])

			return
		}

		end := min(start+batchSize, len(jobs))
		batch := jobs[start:end]

		logger.Debug("starting upload batch",
			slog.Int("batch_start", start),
			slog.Int("batch_size", len(batch)),
			slog.Int("total", len(jobs)),
		)

		g, gctx := errgroup.WithContext(ctx)
		for _, job := range batch {
			job := job
			g.Go(func() error {
				worker.transfer(gctx, job)

				return nil
			})
		}
		// Workers report failures as ledger updates and always return
		// nil, so Wait only acts as the batch barrier.
		_ = g.Wait()
	}
}

// failRemaining marks jobs that never started because the submission
// was cancelled mid-run. Leaving them queued would show a stuck -1
// forever.
func failRemaining(worker *transferWorker, jobs []uploadJob) {
	for _, job := range jobs {
		worker.emit(update{kind: updateFailed, token: job.token, diagnostic: "upload cancelled before completion"})
	}
}
