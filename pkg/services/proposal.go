package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okanero/flowstudio/pkg/eventbus"
	"github.com/okanero/flowstudio/pkg/events"
	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence"
)

// ErrProposalNotFound is returned when a proposal is not found.
var ErrProposalNotFound = persistence.ErrProposalNotFound

// Proposal is the service over reviewable change proposals. A proposal is
// decided at most once; approving one replaces the entity's draft graph.
type Proposal struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
}

// NewProposal creates a new proposal service. The bus may be nil; decision
// events are then skipped.
func NewProposal(persistence persistence.Persistence, bus eventbus.EventBus) *Proposal {
	return &Proposal{
		persistence: persistence,
		bus:         bus,
	}
}

// CreateRequest carries a new proposal.
type CreateRequest struct {
	EntityType string
	Title      string
	Author     string
	Nodes      []*models.GraphNode
	Edges      []*models.GraphEdge
}

// Create stores a pending proposal.
func (p *Proposal) Create(ctx context.Context, req CreateRequest) (*models.Proposal, error) {
	switch {
	case req.EntityType == "":
		return nil, ErrEntityTypeRequired
	case req.Title == "":
		return nil, ErrTitleRequired
	case req.Author == "":
		return nil, ErrAuthorRequired
	}

	proposal := &models.Proposal{
		ID:         uuid.NewString(),
		EntityType: req.EntityType,
		Title:      req.Title,
		Author:     req.Author,
		Status:     models.ProposalStatusPending,
		Nodes:      req.Nodes,
		Edges:      req.Edges,
		CreatedAt:  time.Now().UTC(),
	}

	if err := p.persistence.Proposals().Save(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	return proposal, nil
}

// Get returns a proposal by id.
func (p *Proposal) Get(ctx context.Context, id string) (*models.Proposal, error) {
	return p.persistence.Proposals().Get(ctx, id)
}

// List returns the proposals of an entity type, newest first.
func (p *Proposal) List(ctx context.Context, entityType string) ([]*models.Proposal, error) {
	if entityType == "" {
		return nil, ErrEntityTypeRequired
	}

	return p.persistence.Proposals().ListByEntityType(ctx, entityType)
}

// Approve accepts a pending proposal and replaces the entity draft with the
// proposal's graph. Approving a decided proposal fails with
// ErrProposalAlreadyDecided.
func (p *Proposal) Approve(ctx context.Context, id, decidedBy string) (*models.Proposal, error) {
	proposal, err := p.decide(ctx, id, decidedBy, models.ProposalStatusApproved, "")
	if err != nil {
		return nil, err
	}

	// The approved graph becomes the draft. The draft's own ETag fence is
	// bypassed deliberately: an approval is an editorial decision, not a
	// concurrent editor.
	current, err := p.persistence.Drafts().Get(ctx, proposal.EntityType)
	if persistence.IsDraftNotFound(err) {
		current = &models.Draft{EntityType: proposal.EntityType}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load draft for approval: %w", err)
	}

	current.Nodes = proposal.Nodes
	current.Edges = proposal.Edges
	current.Version++
	current.Published = false
	current.UpdatedBy = decidedBy

	if err := p.persistence.Drafts().Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to apply approved proposal: %w", err)
	}

	return proposal, nil
}

// Reject declines a pending proposal with an optional reason.
func (p *Proposal) Reject(ctx context.Context, id, decidedBy, reason string) (*models.Proposal, error) {
	return p.decide(ctx, id, decidedBy, models.ProposalStatusRejected, reason)
}

func (p *Proposal) decide(ctx context.Context, id, decidedBy string, status models.ProposalStatus, reason string) (*models.Proposal, error) {
	proposal, err := p.persistence.Proposals().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if proposal.Decided() {
		return nil, fmt.Errorf("%w: already %s by %s", ErrProposalAlreadyDecided, proposal.Status, proposal.DecidedBy)
	}

	now := time.Now().UTC()
	proposal.Status = status
	proposal.DecidedAt = &now
	proposal.DecidedBy = decidedBy
	proposal.Reason = reason

	if err := p.persistence.Proposals().Save(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save proposal decision: %w", err)
	}

	p.publishDecision(ctx, proposal)

	return proposal, nil
}

func (p *Proposal) publishDecision(ctx context.Context, proposal *models.Proposal) {
	if p.bus == nil {
		return
	}

	event := &events.ProposalDecided{
		BaseEvent: events.BaseEvent{
			ID:         p.bus.GenerateID(),
			Type:       events.ProposalDecidedEvent,
			Timestamp:  time.Now().UTC(),
			EntityType: proposal.EntityType,
		},
		ProposalID: proposal.ID,
		Status:     proposal.Status,
		DecidedBy:  proposal.DecidedBy,
	}

	// Decision events are advisory; a publish failure never rolls back the
	// decision itself.
	_ = p.bus.Publish(ctx, proposal.EntityType, event)
}

// GraphDiff describes how a proposal differs from the current draft.
type GraphDiff struct {
	AddedNodes   []string `json:"added_nodes"`
	RemovedNodes []string `json:"removed_nodes"`
	ChangedNodes []string `json:"changed_nodes"`
	AddedEdges   []string `json:"added_edges"`
	RemovedEdges []string `json:"removed_edges"`
	ChangedEdges []string `json:"changed_edges"`
}

// Empty reports whether the proposal matches the draft exactly.
func (d *GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ChangedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.ChangedEdges) == 0
}

// Diff compares a proposal against the entity's current draft. A missing
// draft diffs as everything added.
func (p *Proposal) Diff(ctx context.Context, id string) (*GraphDiff, error) {
	proposal, err := p.persistence.Proposals().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	draft, err := p.persistence.Drafts().Get(ctx, proposal.EntityType)
	if persistence.IsDraftNotFound(err) {
		draft = &models.Draft{EntityType: proposal.EntityType}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load draft for diff: %w", err)
	}

	diff := &GraphDiff{
		AddedNodes:   []string{},
		RemovedNodes: []string{},
		ChangedNodes: []string{},
		AddedEdges:   []string{},
		RemovedEdges: []string{},
		ChangedEdges: []string{},
	}

	diffNodes(draft.Nodes, proposal.Nodes, diff)
	diffEdges(draft.Edges, proposal.Edges, diff)

	return diff, nil
}

func diffNodes(current, proposed []*models.GraphNode, diff *GraphDiff) {
	currentByID := make(map[string]*models.GraphNode, len(current))
	for _, node := range current {
		currentByID[node.ID] = node
	}

	proposedByID := make(map[string]struct{}, len(proposed))

	for _, node := range proposed {
		proposedByID[node.ID] = struct{}{}

		existing, ok := currentByID[node.ID]
		switch {
		case !ok:
			diff.AddedNodes = append(diff.AddedNodes, node.ID)
		case !nodeEqual(existing, node):
			diff.ChangedNodes = append(diff.ChangedNodes, node.ID)
		}
	}

	for _, node := range current {
		if _, ok := proposedByID[node.ID]; !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, node.ID)
		}
	}
}

func diffEdges(current, proposed []*models.GraphEdge, diff *GraphDiff) {
	currentByID := make(map[string]*models.GraphEdge, len(current))
	for _, edge := range current {
		currentByID[edge.ID] = edge
	}

	proposedByID := make(map[string]struct{}, len(proposed))

	for _, edge := range proposed {
		proposedByID[edge.ID] = struct{}{}

		existing, ok := currentByID[edge.ID]
		switch {
		case !ok:
			diff.AddedEdges = append(diff.AddedEdges, edge.ID)
		case *existing != *edge:
			diff.ChangedEdges = append(diff.ChangedEdges, edge.ID)
		}
	}

	for _, edge := range current {
		if _, ok := proposedByID[edge.ID]; !ok {
			diff.RemovedEdges = append(diff.RemovedEdges, edge.ID)
		}
	}
}

// nodeEqual compares the editable fields of two nodes. Slices make GraphNode
// uncomparable, so the comparison is spelled out.
func nodeEqual(a, b *models.GraphNode) bool {
	if a.Type != b.Type || a.Label != b.Label || a.Position != b.Position {
		return false
	}

	if len(a.Actions) != len(b.Actions) || len(a.Guards) != len(b.Guards) {
		return false
	}

	for i := range a.Actions {
		if a.Actions[i] != b.Actions[i] {
			return false
		}
	}

	for i := range a.Guards {
		if a.Guards[i] != b.Guards[i] {
			return false
		}
	}

	return true
}
