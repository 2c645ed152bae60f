// Package layout provides pure position-assignment strategies for workflow
// graphs. A strategy never mutates its input and gives every node exactly
// one position; given identical input twice the output is identical.
package layout

import (
	"context"

	"github.com/okanero/flowstudio/pkg/models"
)

// Node spacing constants shared by both strategies.
const (
	SpacingX = 220.0
	SpacingY = 140.0
)

// Strategy assigns 2D positions to nodes given the edge set. Implementations
// return a positioned copy of the node slice.
type Strategy interface {
	Name() string
	Layout(ctx context.Context, nodes []*models.GraphNode, edges []*models.GraphEdge) ([]*models.GraphNode, error)
}

// cloneNodes deep-copies the node slice so strategies can position freely.
func cloneNodes(nodes []*models.GraphNode) []*models.GraphNode {
	out := make([]*models.GraphNode, len(nodes))
	for i, node := range nodes {
		out[i] = node.Clone()
	}

	return out
}

// placeRows positions nodes row by row: all nodes of a layer share a Y
// coordinate and spread horizontally in the order supplied. Nodes without a
// layer assignment (disconnected) go to one fallback row below the rest.
func placeRows(nodes []*models.GraphNode, layers map[string]int) {
	maxLayer := 0
	for _, layer := range layers {
		if layer > maxLayer {
			maxLayer = layer
		}
	}

	columns := make(map[int]int)
	fallback := 0

	for _, node := range nodes {
		layer, ok := layers[node.ID]
		if !ok {
			node.Position = models.Position{
				X: float64(fallback) * SpacingX,
				Y: float64(maxLayer+1) * SpacingY,
			}
			fallback++

			continue
		}

		node.Position = models.Position{
			X: float64(columns[layer]) * SpacingX,
			Y: float64(layer) * SpacingY,
		}
		columns[layer]++
	}
}

// connected returns the ids that participate in at least one edge.
func connected(edges []*models.GraphEdge) map[string]struct{} {
	ids := make(map[string]struct{}, len(edges)*2)
	for _, edge := range edges {
		ids[edge.Source] = struct{}{}
		ids[edge.Target] = struct{}{}
	}

	return ids
}
