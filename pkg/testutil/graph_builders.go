// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/okanero/flowstudio/pkg/models"
)

// CreateTestNode creates a test GraphNode with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.GraphNode)) *models.GraphNode {
	node := &models.GraphNode{
		ID:       uuid.New().String(),
		Type:     models.NodeTypeState,
		Label:    "Test State",
		Position: models.Position{X: 100, Y: 200},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithNodeID sets the node id.
func WithNodeID(id string) func(*models.GraphNode) {
	return func(n *models.GraphNode) {
		n.ID = id
	}
}

// WithNodeType sets the node type.
func WithNodeType(nodeType models.NodeType) func(*models.GraphNode) {
	return func(n *models.GraphNode) {
		n.Type = nodeType
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*models.GraphNode) {
	return func(n *models.GraphNode) {
		n.Label = label
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.GraphNode) {
	return func(n *models.GraphNode) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// CreateTestEdge creates a test GraphEdge between two nodes.
func CreateTestEdge(source, target string, overrides ...func(*models.GraphEdge)) *models.GraphEdge {
	edge := &models.GraphEdge{
		ID:     uuid.New().String(),
		Source: source,
		Target: target,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithEdgeID sets the edge id.
func WithEdgeID(id string) func(*models.GraphEdge) {
	return func(e *models.GraphEdge) {
		e.ID = id
	}
}

// WithCondition sets the edge guard condition.
func WithCondition(condition string) func(*models.GraphEdge) {
	return func(e *models.GraphEdge) {
		e.Condition = condition
	}
}

// CreateTestDraft creates a draft with a minimal valid graph: a start state
// leading to an end state.
func CreateTestDraft(entityType string, overrides ...func(*models.Draft)) *models.Draft {
	start := CreateTestNode(WithNodeID("start"), WithLabel("Start"))
	done := CreateTestNode(WithNodeID("done"), WithNodeType(models.NodeTypeEnd), WithLabel("Done"))

	draft := &models.Draft{
		EntityType: entityType,
		Nodes:      []*models.GraphNode{start, done},
		Edges:      []*models.GraphEdge{CreateTestEdge("start", "done", WithEdgeID("e-start-done"))},
	}

	for _, override := range overrides {
		override(draft)
	}

	return draft
}
