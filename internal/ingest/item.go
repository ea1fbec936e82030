// Package ingest implements the batch ingestion subsystem: candidate
// validation, drop expansion, external source conversion, batched
// concurrent transfer, and reconciliation against the remote store.
//
// Architecture: a single event-loop goroutine (Service.Run) owns the
// item ledger. Transfer workers and expansion tasks never touch the
// ledger directly; they emit token-addressed updates that the loop
// applies in arrival order.
package ingest

import (
	"github.com/google/uuid"

	"github.com/docstage/docstage/internal/remote"
)

// Progress band boundaries. Values in [0,100) mean a transfer is in
// flight; the two negatives and 100 are the resting states.
const (
	// ProgressFailed marks an item whose transfer ended in failure. The
	// item stays visible for retry or removal.
	ProgressFailed = -2

	// ProgressQueued marks an item accepted into the ledger but not yet
	// dispatched.
	ProgressQueued = -1

	// ProgressStored marks an item confirmed durable on the remote store.
	ProgressStored = 100
)

// Provenance records where an item came from. It is a closed set of
// variants rather than a free-form metadata bag, so downstream code can
// switch on the concrete type.
type Provenance interface {
	provenance()
}

// LocalProvenance marks an item selected or dropped from the local
// filesystem.
type LocalProvenance struct{}

func (LocalProvenance) provenance() {}

// ExternalProvenance marks an item synthesized from an external source
// conversion. SourceRef is the opaque reference handed to the
// converter, SectionID identifies the section within that source, and
// ContentHash is the SHA-256 hex digest of the section content used for
// change detection on resync.
type ExternalProvenance struct {
	SourceRef   string
	SectionID   string
	ContentHash string
}

func (ExternalProvenance) provenance() {}

// Candidate is a proposed item produced by the source expander or
// handed in directly by the host, before validation.
type Candidate struct {
	Name         string
	MIMEType     string
	Content      []byte
	RelativePath string
	Provenance   Provenance
}

// Size returns the candidate payload size in bytes.
func (c Candidate) Size() int64 { return int64(len(c.Content)) }

// Item is one unit of content moving into the remote store. Tokens are
// client-generated, unique for the session, and never reused; all
// mutation is addressed by token.
type Item struct {
	Token        string
	Name         string
	MIMEType     string
	Content      []byte
	RelativePath string
	Provenance   Provenance

	// Progress is -2 failed, -1 queued, [0,100) transferring, 100 stored.
	Progress int

	// Failure carries the human-readable diagnostic when Progress is -2.
	Failure string

	// Remote is the store's representation once the item is durable.
	// Progress == 100 implies Remote is non-nil.
	Remote *remote.Document
}

// newToken mints a session-unique item token.
func newToken() string {
	return uuid.NewString()
}

// newItem builds a queued ledger entry from an accepted candidate.
func newItem(c Candidate) *Item {
	return &Item{
		Token:        newToken(),
		Name:         c.Name,
		MIMEType:     c.MIMEType,
		Content:      c.Content,
		RelativePath: c.RelativePath,
		Provenance:   c.Provenance,
		Progress:     ProgressQueued,
	}
}

// Stored reports whether the item is confirmed durable remotely.
func (it *Item) Stored() bool { return it.Progress == ProgressStored }

// Failed reports whether the item's transfer ended in failure.
func (it *Item) Failed() bool { return it.Progress == ProgressFailed }

// settled reports whether the item is in a terminal state. Progress
// ticks for settled items are dropped.
func (it *Item) settled() bool { return it.Stored() || it.Failed() }

// clone returns a copy safe to hand outside the event loop. Content is
// shared (never mutated after creation); Remote is copied.
func (it *Item) clone() Item {
	out := *it
	if it.Remote != nil {
		doc := *it.Remote
		out.Remote = &doc
	}

	return out
}
