package models

import "time"

// ProposalStatus represents the review state of a proposal.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// Proposal is a named, reviewable bundle of draft changes submitted for
// approval before becoming the active draft. A proposal is decided at most
// once.
type Proposal struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type" validate:"required,min=1"`
	Title      string         `json:"title"       validate:"required,min=3"`
	Author     string         `json:"author"      validate:"required"`
	Status     ProposalStatus `json:"status"`
	Nodes      []*GraphNode   `json:"nodes"`
	Edges      []*GraphEdge   `json:"edges"`
	CreatedAt  time.Time      `json:"created_at"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
	DecidedBy  string         `json:"decided_by,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Decided reports whether the proposal has already been approved or rejected.
func (p *Proposal) Decided() bool {
	return p.Status != ProposalStatusPending
}
