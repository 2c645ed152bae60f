// Package web provides HTTP request and response types for the workflow
// editing API.
package web

import "github.com/okanero/flowstudio/pkg/models"

// SaveDraftRequest represents the request body for replacing a draft graph.
type SaveDraftRequest struct {
	Nodes     []*models.GraphNode `json:"nodes"`
	Edges     []*models.GraphEdge `json:"edges"`
	UpdatedBy string              `json:"updated_by"`
}

// DryRunRequest represents the request body for simulating a draft.
type DryRunRequest struct {
	StartNodeID string          `json:"start_node_id,omitempty"`
	Facts       map[string]bool `json:"facts,omitempty"`
}

// CreateProposalRequest represents the request body for submitting a proposal.
type CreateProposalRequest struct {
	Title  string              `json:"title"  validate:"required,min=3"`
	Author string              `json:"author" validate:"required"`
	Nodes  []*models.GraphNode `json:"nodes"`
	Edges  []*models.GraphEdge `json:"edges"`
}

// DecideProposalRequest represents the request body for an approve or
// reject decision.
type DecideProposalRequest struct {
	DecidedBy string `json:"decided_by" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

// PublishRequest represents the request body for publishing a draft.
type PublishRequest struct {
	PublishedBy string `json:"published_by" validate:"required"`
}
