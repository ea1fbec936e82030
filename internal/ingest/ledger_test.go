package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstage/docstage/internal/remote"
)

func queuedItem(name string) *Item {
	return newItem(Candidate{Name: name, Content: []byte("body"), Provenance: LocalProvenance{}})
}

func TestLedger_AppendPreservesOrder(t *testing.T) {
	l := NewLedger()

	a, b, c := queuedItem("a.md"), queuedItem("b.md"), queuedItem("c.md")
	l.Append(a, b, c)

	items := l.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, []string{items[0].Name, items[1].Name, items[2].Name})
}

func TestLedger_AppendDuplicateTokenPanics(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	assert.Panics(t, func() { l.Append(it) })
}

func TestLedger_SetProgress_StrictlyIncreasing(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	assert.True(t, l.SetProgress(it.Token, 10))
	assert.True(t, l.SetProgress(it.Token, 55))
	assert.False(t, l.SetProgress(it.Token, 55), "equal progress is dropped")
	assert.False(t, l.SetProgress(it.Token, 30), "backwards progress is dropped")
	assert.Equal(t, 55, it.Progress)
}

func TestLedger_SetProgress_RejectsOutOfBand(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	assert.False(t, l.SetProgress(it.Token, -1))
	assert.False(t, l.SetProgress(it.Token, 100), "100 only arrives via Settle")
}

func TestLedger_LateProgressAfterSettleDropped(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	require.True(t, l.Settle(it.Token, &remote.Document{ID: "doc-1"}))
	assert.False(t, l.SetProgress(it.Token, 80), "ticks after a terminal update are ignored")
	assert.Equal(t, ProgressStored, it.Progress)
}

func TestLedger_LateProgressAfterFailDropped(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	require.True(t, l.Fail(it.Token, "upload failed"))
	assert.False(t, l.SetProgress(it.Token, 80))
	assert.Equal(t, ProgressFailed, it.Progress)
}

func TestLedger_Settle_ReplacesPayload(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	doc := &remote.Document{ID: "doc-1", Name: "a.md", Size: 4}
	require.True(t, l.Settle(it.Token, doc))

	assert.True(t, it.Stored())
	assert.Nil(t, it.Content, "local payload released once durable")
	require.NotNil(t, it.Remote)
	assert.Equal(t, "doc-1", it.Remote.ID)
}

func TestLedger_Fail_ItemRemainsEnumerable(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	require.True(t, l.Fail(it.Token, "server rejected upload"))

	items := l.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].Failed())
	assert.Equal(t, "server rejected upload", items[0].Failure)
}

func TestLedger_Requeue_OnlyFailedItems(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)

	assert.False(t, l.Requeue(it.Token), "queued item cannot be requeued")

	require.True(t, l.Fail(it.Token, "boom"))
	assert.True(t, l.Requeue(it.Token))
	assert.Equal(t, ProgressQueued, it.Progress)
	assert.Empty(t, it.Failure)
}

func TestLedger_Remove_RetiresToken(t *testing.T) {
	l := NewLedger()
	a, b := queuedItem("a.md"), queuedItem("b.md")
	l.Append(a, b)

	removed, ok := l.Remove(a.Token)
	require.True(t, ok)
	assert.Equal(t, "a.md", removed.Name)
	assert.Equal(t, 1, l.Len())

	// Updates addressed to the removed token are dropped, not applied.
	assert.False(t, l.SetProgress(a.Token, 50))
	assert.False(t, l.Settle(a.Token, &remote.Document{ID: "doc-x"}))
	assert.False(t, l.Fail(a.Token, "late failure"))

	_, found := l.Get(a.Token)
	assert.False(t, found)
}

func TestLedger_Remove_UnknownToken(t *testing.T) {
	l := NewLedger()
	_, ok := l.Remove("ghost")
	assert.False(t, ok)
}

func TestLedger_UpdatesForUnknownTokenDropped(t *testing.T) {
	l := NewLedger()
	assert.False(t, l.SetProgress("ghost", 10))
	assert.False(t, l.Settle("ghost", &remote.Document{ID: "d"}))
	assert.False(t, l.Fail("ghost", "x"))
}

func TestLedger_StoredCountAndHasRemoteID(t *testing.T) {
	l := NewLedger()
	a, b := queuedItem("a.md"), queuedItem("b.md")
	l.Append(a, b)

	require.True(t, l.Settle(a.Token, &remote.Document{ID: "doc-1"}))

	assert.Equal(t, 1, l.StoredCount())
	assert.True(t, l.HasRemoteID("doc-1"))
	assert.False(t, l.HasRemoteID("doc-2"))
}

func TestLedger_ItemsReturnsCopies(t *testing.T) {
	l := NewLedger()
	it := queuedItem("a.md")
	l.Append(it)
	require.True(t, l.Settle(it.Token, &remote.Document{ID: "doc-1"}))

	snapshot := l.Items()
	snapshot[0].Remote.ID = "mutated"
	snapshot[0].Progress = 7

	assert.Equal(t, "doc-1", it.Remote.ID, "snapshot mutation must not reach the ledger")
	assert.Equal(t, ProgressStored, it.Progress)
}

func TestNewItem_QueuedWithFreshToken(t *testing.T) {
	a := queuedItem("a.md")
	b := queuedItem("a.md")

	assert.Equal(t, ProgressQueued, a.Progress)
	assert.NotEmpty(t, a.Token)
	assert.NotEqual(t, a.Token, b.Token)
}
