package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// reconcileOnce merges remote items that exist in the store but are not
// attached to anything into the ledger, so the session starts from what
// the remote already holds. It runs at most once per service lifetime;
// later calls are no-ops even if the first listing failed, because a
// second merge could duplicate entries added in between.
func (s *Service) reconcileOnce(ctx context.Context) error {
	if s.reconciled {
		return nil
	}
	s.reconciled = true

	docs, err := s.api.ListUnusedRemoteItems(ctx)
	if err != nil {
		return fmt.Errorf("listing unused remote items: %w", err)
	}

	merged := 0
	for _, doc := range docs {
		// A listing that repeats an identifier, or repeats one the
		// ledger already holds, contributes nothing new.
		if s.ledger.HasRemoteID(doc.ID) {
			continue
		}

		d := doc
		s.ledger.Append(&Item{
			Token:      newToken(),
			Name:       d.Name,
			MIMEType:   d.MIMEType,
			Provenance: LocalProvenance{},
			Progress:   ProgressStored,
			Remote:     &d,
		})
		merged++
	}

	if merged > 0 {
		s.logger.Info("merged unused remote items", slog.Int("count", merged))
		s.sendNotice(infoNotice(fmt.Sprintf("found %d existing remote item(s)", merged)))
	}

	return nil
}
