package persistence

import (
	"context"

	"github.com/okanero/flowstudio/pkg/models"
)

// DraftRepository stores the mutable working copy of each entity's workflow
// graph, one draft per entity type.
type DraftRepository interface {
	// Get returns the draft for the entity type, or ErrDraftNotFound.
	Get(ctx context.Context, entityType string) (*models.Draft, error)
	// Save persists the draft, replacing any previous version.
	Save(ctx context.Context, draft *models.Draft) error
	// Delete removes the draft. Deleting an absent draft is not an error.
	Delete(ctx context.Context, entityType string) error
	// List returns all stored drafts.
	List(ctx context.Context) ([]*models.Draft, error)
}

// ProposalRepository stores change proposals raised against entity drafts.
type ProposalRepository interface {
	// Get returns the proposal by id, or ErrProposalNotFound.
	Get(ctx context.Context, id string) (*models.Proposal, error)
	// Save persists the proposal, replacing any previous version.
	Save(ctx context.Context, proposal *models.Proposal) error
	// ListByEntityType returns proposals for one entity type, newest first.
	ListByEntityType(ctx context.Context, entityType string) ([]*models.Proposal, error)
	// Delete removes the proposal by id, or returns ErrProposalNotFound.
	Delete(ctx context.Context, id string) error
}

// Persistence is the storage contract the services are built on.
type Persistence interface {
	Drafts() DraftRepository
	Proposals() ProposalRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
