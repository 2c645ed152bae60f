package layout

import (
	"context"

	"github.com/okanero/flowstudio/pkg/models"
)

// Compact is the fast single-pass layered layout: every edge is relaxed
// exactly once in supplied order, which is enough to stack typical
// workflows top-down without the full ranking work Hierarchical does.
type Compact struct{}

// NewCompact returns the compact strategy.
func NewCompact() *Compact {
	return &Compact{}
}

func (c *Compact) Name() string {
	return "compact"
}

func (c *Compact) Layout(_ context.Context, nodes []*models.GraphNode, edges []*models.GraphEdge) ([]*models.GraphNode, error) {
	out := cloneNodes(nodes)

	known := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		known[node.ID] = struct{}{}
	}

	layers := make(map[string]int, len(nodes))

	isConnected := connected(edges)
	for _, node := range nodes {
		if _, ok := isConnected[node.ID]; ok {
			layers[node.ID] = 0
		}
	}

	for _, edge := range edges {
		if _, ok := known[edge.Source]; !ok {
			continue
		}

		if _, ok := known[edge.Target]; !ok {
			continue
		}

		if layers[edge.Target] < layers[edge.Source]+1 {
			layers[edge.Target] = layers[edge.Source] + 1
		}
	}

	placeRows(out, layers)

	return out, nil
}
