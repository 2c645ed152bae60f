package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence"
)

func TestDraftRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())

	draft := &models.Draft{
		EntityType: "order",
		Nodes: []*models.GraphNode{
			{ID: "start", Type: models.NodeTypeState, Label: "Start"},
		},
		Edges:   []*models.GraphEdge{},
		Version: 1,
	}

	require.NoError(t, p.Drafts().Save(t.Context(), draft))

	loaded, err := p.Drafts().Get(t.Context(), "order")
	require.NoError(t, err)
	assert.Equal(t, "order", loaded.EntityType)
	assert.Len(t, loaded.Nodes, 1)
	assert.Equal(t, int64(1), loaded.Version)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestDraftRepository_GetMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Drafts().Get(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsDraftNotFound(err))
}

func TestDraftRepository_SaveReplaces(t *testing.T) {
	p := NewPersistence(t.TempDir())

	draft := &models.Draft{EntityType: "order", Version: 1}
	require.NoError(t, p.Drafts().Save(t.Context(), draft))

	draft.Version = 2
	require.NoError(t, p.Drafts().Save(t.Context(), draft))

	loaded, err := p.Drafts().Get(t.Context(), "order")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
}

func TestDraftRepository_DeleteAbsentIsNotAnError(t *testing.T) {
	p := NewPersistence(t.TempDir())

	assert.NoError(t, p.Drafts().Delete(t.Context(), "nope"))
}

func TestDraftRepository_List(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.Drafts().Save(t.Context(), &models.Draft{EntityType: "order"}))
	require.NoError(t, p.Drafts().Save(t.Context(), &models.Draft{EntityType: "shipment"}))

	drafts, err := p.Drafts().List(t.Context())
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

func TestDraftRepository_ListEmpty(t *testing.T) {
	p := NewPersistence(t.TempDir())

	drafts, err := p.Drafts().List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestProposalRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())

	proposal := &models.Proposal{
		ID:         "p-1",
		EntityType: "order",
		Title:      "Add review step",
		Author:     "alice",
		Status:     models.ProposalStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	require.NoError(t, p.Proposals().Save(t.Context(), proposal))

	loaded, err := p.Proposals().Get(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Add review step", loaded.Title)
	assert.Equal(t, models.ProposalStatusPending, loaded.Status)
}

func TestProposalRepository_GetMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.Proposals().Get(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsProposalNotFound(err))
}

func TestProposalRepository_ListByEntityType(t *testing.T) {
	p := NewPersistence(t.TempDir())

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	require.NoError(t, p.Proposals().Save(t.Context(), &models.Proposal{
		ID: "p-old", EntityType: "order", CreatedAt: older,
	}))
	require.NoError(t, p.Proposals().Save(t.Context(), &models.Proposal{
		ID: "p-new", EntityType: "order", CreatedAt: newer,
	}))
	require.NoError(t, p.Proposals().Save(t.Context(), &models.Proposal{
		ID: "p-other", EntityType: "shipment", CreatedAt: newer,
	}))

	proposals, err := p.Proposals().ListByEntityType(t.Context(), "order")
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	assert.Equal(t, "p-new", proposals[0].ID)
	assert.Equal(t, "p-old", proposals[1].ID)
}

func TestProposalRepository_DeleteMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.Proposals().Delete(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsProposalNotFound(err))
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())
	assert.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence("/nonexistent/flowstudio-test")
	assert.Error(t, missing.HealthCheck(t.Context()))
}
