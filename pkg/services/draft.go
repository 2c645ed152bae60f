package services

import (
	"context"
	"crypto/sha1" //nolint:gosec // ETags need stability, not collision resistance.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence"
)

// ErrDraftNotFound is returned when a draft is not found.
var ErrDraftNotFound = persistence.ErrDraftNotFound

// Draft is the service over the per-entity workflow drafts. Every accepted
// save bumps the version; concurrent saves are fenced with the draft's ETag.
type Draft struct {
	persistence persistence.Persistence
}

// NewDraft creates a new draft service.
func NewDraft(persistence persistence.Persistence) *Draft {
	return &Draft{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Draft) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Get returns the draft for an entity type together with its current ETag.
func (d *Draft) Get(ctx context.Context, entityType string) (*models.Draft, string, error) {
	if entityType == "" {
		return nil, "", ErrEntityTypeRequired
	}

	draft, err := d.persistence.Drafts().Get(ctx, entityType)
	if err != nil {
		return nil, "", err
	}

	return draft, ETag(draft), nil
}

// List returns every stored draft.
func (d *Draft) List(ctx context.Context) ([]*models.Draft, error) {
	return d.persistence.Drafts().List(ctx)
}

// SaveRequest carries a full draft replacement.
type SaveRequest struct {
	EntityType string
	Nodes      []*models.GraphNode
	Edges      []*models.GraphEdge
	UpdatedBy  string

	// IfMatch is the ETag the caller last saw. Empty means the caller
	// expects no draft to exist yet.
	IfMatch string
}

// Save replaces the draft graph, bumping the version. A stale or missing
// IfMatch fails with ErrVersionConflict; the caller must reload and retry
// with fresh state, never merge blindly.
func (d *Draft) Save(ctx context.Context, req SaveRequest) (*models.Draft, string, error) {
	if req.EntityType == "" {
		return nil, "", ErrEntityTypeRequired
	}

	current, err := d.persistence.Drafts().Get(ctx, req.EntityType)

	switch {
	case persistence.IsDraftNotFound(err):
		if req.IfMatch != "" {
			return nil, "", fmt.Errorf("%w: draft does not exist", ErrVersionConflict)
		}

		current = &models.Draft{EntityType: req.EntityType}
	case err != nil:
		return nil, "", fmt.Errorf("failed to load draft %s: %w", req.EntityType, err)
	default:
		if req.IfMatch != ETag(current) {
			return nil, "", fmt.Errorf("%w: expected %s", ErrVersionConflict, ETag(current))
		}
	}

	current.Nodes = req.Nodes
	current.Edges = req.Edges
	current.Version++
	current.Published = false
	current.UpdatedBy = req.UpdatedBy
	current.UpdatedAt = time.Now().UTC()

	if err := d.persistence.Drafts().Save(ctx, current); err != nil {
		return nil, "", fmt.Errorf("failed to save draft %s: %w", req.EntityType, err)
	}

	return current, ETag(current), nil
}

// Delete removes the draft for an entity type.
func (d *Draft) Delete(ctx context.Context, entityType string) error {
	if entityType == "" {
		return ErrEntityTypeRequired
	}

	return d.persistence.Drafts().Delete(ctx, entityType)
}

// ETag derives the version fence the API hands out for a draft: a SHA-1
// over the canonical JSON of the fields a save can change. Two drafts with
// the same graph and version always produce the same tag.
func ETag(draft *models.Draft) string {
	if draft == nil {
		return ""
	}

	canonical := struct {
		EntityType string              `json:"entity_type"`
		Nodes      []*models.GraphNode `json:"nodes"`
		Edges      []*models.GraphEdge `json:"edges"`
		Version    int64               `json:"version"`
	}{
		EntityType: draft.EntityType,
		Nodes:      draft.Nodes,
		Edges:      draft.Edges,
		Version:    draft.Version,
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return ""
	}

	sum := sha1.Sum(data) //nolint:gosec

	return hex.EncodeToString(sum[:])
}
