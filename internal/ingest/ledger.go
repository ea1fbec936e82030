package ingest

import "github.com/docstage/docstage/internal/remote"

// Ledger is the authoritative, order-preserving collection of items for
// the session. It is NOT safe for concurrent use: the Service event
// loop is its sole owner, and everything else reaches it through
// token-addressed update messages.
//
// Mutation is last-writer-wins per token. Updates addressed to tokens
// the ledger does not hold (never appended, or already removed) are
// silently dropped, which is what makes removal idempotent against
// in-flight transfers.
type Ledger struct {
	order   []string
	byToken map[string]*Item
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byToken: make(map[string]*Item)}
}

// Append adds items in order. Panics on a duplicate live token, since
// tokens are minted fresh per item and a collision means a programming
// error, not bad input.
func (l *Ledger) Append(items ...*Item) {
	for _, it := range items {
		if _, exists := l.byToken[it.Token]; exists {
			panic("ledger: duplicate token " + it.Token)
		}

		l.byToken[it.Token] = it
		l.order = append(l.order, it.Token)
	}
}

// Get returns the live item for a token.
func (l *Ledger) Get(token string) (*Item, bool) {
	it, ok := l.byToken[token]
	return it, ok
}

// SetProgress applies an in-flight progress tick. The tick is dropped
// when the token is unknown, the item already settled (a late tick
// racing a terminal update), or the value does not move progress
// strictly forward. Returns whether the tick was applied.
func (l *Ledger) SetProgress(token string, pct int) bool {
	it, ok := l.byToken[token]
	if !ok || it.settled() {
		return false
	}

	if pct < 0 || pct >= ProgressStored || pct <= it.Progress {
		return false
	}

	it.Progress = pct

	return true
}

// Settle marks an item durably stored, replacing its payload with the
// remote representation. Dropped for unknown tokens.
func (l *Ledger) Settle(token string, doc *remote.Document) bool {
	it, ok := l.byToken[token]
	if !ok {
		return false
	}

	it.Progress = ProgressStored
	it.Remote = doc
	it.Failure = ""
	it.Content = nil // payload is durable remotely, no need to hold it

	return true
}

// Fail marks an item's transfer as failed with a diagnostic. The item
// stays in the ledger for retry or removal. Dropped for unknown tokens.
func (l *Ledger) Fail(token, diagnostic string) bool {
	it, ok := l.byToken[token]
	if !ok {
		return false
	}

	it.Progress = ProgressFailed
	it.Failure = diagnostic

	return true
}

// Requeue resets a failed item to queued for a retry submission.
// Returns false when the token is unknown or the item is not failed.
func (l *Ledger) Requeue(token string) bool {
	it, ok := l.byToken[token]
	if !ok || !it.Failed() {
		return false
	}

	it.Progress = ProgressQueued
	it.Failure = ""

	return true
}

// Remove deletes the item for a token and returns it. The token is
// retired: later updates addressed to it are dropped, and it is never
// reused.
func (l *Ledger) Remove(token string) (*Item, bool) {
	it, ok := l.byToken[token]
	if !ok {
		return nil, false
	}

	delete(l.byToken, token)

	for i, tok := range l.order {
		if tok == token {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	return it, true
}

// Items returns a snapshot of all live items in append order.
func (l *Ledger) Items() []Item {
	out := make([]Item, 0, len(l.order))
	for _, tok := range l.order {
		out = append(out, l.byToken[tok].clone())
	}

	return out
}

// Len returns the number of live items.
func (l *Ledger) Len() int { return len(l.order) }

// StoredCount returns how many items are confirmed durable.
func (l *Ledger) StoredCount() int {
	n := 0

	for _, it := range l.byToken {
		if it.Stored() {
			n++
		}
	}

	return n
}

// HasRemoteID reports whether any live item references the given remote
// identifier. The reconciler uses this to skip already-merged documents.
func (l *Ledger) HasRemoteID(remoteID string) bool {
	for _, it := range l.byToken {
		if it.Remote != nil && it.Remote.ID == remoteID {
			return true
		}
	}

	return false
}
