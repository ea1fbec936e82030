package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/docstage/docstage/internal/logging"
	"github.com/docstage/docstage/internal/remote"
)

func TestReconcileRunsAtMostOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockRemoteAPI(ctrl)
	api.EXPECT().ListUnusedRemoteItems(gomock.Any()).
		Return([]remote.Document{{ID: "doc-1", Name: "old.md"}}, nil).
		Times(1)

	svc := NewService(api, nil, logging.New("production"))

	require.NoError(t, svc.reconcileOnce(context.Background()))
	require.NoError(t, svc.reconcileOnce(context.Background()))

	assert.Equal(t, 1, svc.ledger.Len())
}

func TestReconcileFailureDoesNotRetry(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockRemoteAPI(ctrl)
	api.EXPECT().ListUnusedRemoteItems(gomock.Any()).
		Return(nil, errors.New("remote API error: unavailable")).
		Times(1)

	svc := NewService(api, nil, logging.New("production"))

	require.Error(t, svc.reconcileOnce(context.Background()))
	require.NoError(t, svc.reconcileOnce(context.Background()), "a second call is a no-op even after failure")
	assert.Equal(t, 0, svc.ledger.Len())
}

func TestReconcileSkipsAlreadyMergedIdentifiers(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockRemoteAPI(ctrl)
	api.EXPECT().ListUnusedRemoteItems(gomock.Any()).
		Return([]remote.Document{{ID: "doc-1", Name: "old.md"}, {ID: "doc-2", Name: "other.md"}}, nil)

	svc := NewService(api, nil, logging.New("production"))
	svc.ledger.Append(&Item{
		Token:    newToken(),
		Name:     "old.md",
		Progress: ProgressStored,
		Remote:   &remote.Document{ID: "doc-1"},
	})

	require.NoError(t, svc.reconcileOnce(context.Background()))

	assert.Equal(t, 2, svc.ledger.Len(), "only the unseen identifier is merged")
	assert.True(t, svc.ledger.HasRemoteID("doc-2"))
}
