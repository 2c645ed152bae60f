// Package models defines the core domain models for collaborative workflow editing.
package models

import "time"

// NodeType represents the kind of a workflow graph node.
type NodeType string

const (
	NodeTypeState    NodeType = "state"    // Regular workflow state
	NodeTypeDecision NodeType = "decision" // Branching point with guarded outgoing edges
	NodeTypeEnd      NodeType = "end"      // Terminal state
)

// Valid reports whether the node type is one of the known kinds.
func (t NodeType) Valid() bool {
	return t == NodeTypeState || t == NodeTypeDecision || t == NodeTypeEnd
}

// Position is a 2D canvas position. Advisory only: layout strategies
// overwrite it on demand.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode represents a state in an editable workflow graph.
type GraphNode struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required,oneof=state decision end"`
	Label    string   `json:"label"    validate:"required,min=1"`
	Position Position `json:"position"`
	Actions  []string `json:"actions,omitempty"`
	Guards   []string `json:"guards,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *GraphNode) Clone() *GraphNode {
	if n == nil {
		return nil
	}

	clone := *n
	clone.Actions = append([]string(nil), n.Actions...)
	clone.Guards = append([]string(nil), n.Guards...)

	return &clone
}

// GraphEdge represents a transition between two nodes. The endpoints are
// node ids and are not guaranteed to resolve: deleting a node leaves its
// incident edges dangling rather than cascading.
type GraphEdge struct {
	ID        string `json:"id"        validate:"required"`
	Source    string `json:"source"    validate:"required"`
	Target    string `json:"target"    validate:"required"`
	Label     string `json:"label"`
	Condition string `json:"condition,omitempty"`
}

// Clone returns a copy of the edge.
func (e *GraphEdge) Clone() *GraphEdge {
	if e == nil {
		return nil
	}

	clone := *e

	return &clone
}

// Draft is the editable workflow document for one entity type. There is one
// live draft per entity type; Version is bumped on every accepted save and
// backs the ETag the API hands out.
type Draft struct {
	EntityType string       `json:"entity_type" validate:"required,min=1"`
	Nodes      []*GraphNode `json:"nodes"`
	Edges      []*GraphEdge `json:"edges"`
	Version    int64        `json:"version"`
	Published  bool         `json:"published"`
	UpdatedAt  time.Time    `json:"updated_at"`
	UpdatedBy  string       `json:"updated_by,omitempty"`
}

// NodePatch is a partial node update as carried by the collaboration
// protocol. Nil fields are left untouched on apply.
type NodePatch struct {
	ID       string    `json:"id" validate:"required"`
	Type     *NodeType `json:"type,omitempty"`
	Label    *string   `json:"label,omitempty"`
	Position *Position `json:"position,omitempty"`
	Actions  []string  `json:"actions,omitempty"`
	Guards   []string  `json:"guards,omitempty"`
}

// EdgePatch is a partial edge update as carried by the collaboration protocol.
type EdgePatch struct {
	ID        string  `json:"id" validate:"required"`
	Source    *string `json:"source,omitempty"`
	Target    *string `json:"target,omitempty"`
	Label     *string `json:"label,omitempty"`
	Condition *string `json:"condition,omitempty"`
}
