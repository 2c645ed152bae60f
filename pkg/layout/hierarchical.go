package layout

import (
	"context"
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/okanero/flowstudio/pkg/models"
)

// Hierarchical is a layered top-down layout honoring edge direction:
// each node sits one row below its furthest predecessor (longest-path
// layering over a stable topological order). Edges that would close a cycle
// are ignored for ranking, so cyclic drafts still lay out.
type Hierarchical struct{}

// NewHierarchical returns the hierarchical strategy.
func NewHierarchical() *Hierarchical {
	return &Hierarchical{}
}

func (h *Hierarchical) Name() string {
	return "hierarchical"
}

// Layout computes positions. The context is checked between phases; layered
// ranking of large graphs is iterative work and callers may cancel it.
func (h *Hierarchical) Layout(ctx context.Context, nodes []*models.GraphNode, edges []*models.GraphEdge) ([]*models.GraphNode, error) {
	out := cloneNodes(nodes)

	known := make(map[string]struct{}, len(nodes))
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, node := range nodes {
		known[node.ID] = struct{}{}

		if err := g.AddVertex(node.ID); err != nil {
			return nil, fmt.Errorf("hierarchical layout: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Dangling edges reference removed nodes; they carry no rank information.
	// Cycle-closing edges are dropped from the ranking graph as well.
	accepted := make([]*models.GraphEdge, 0, len(edges))

	for _, edge := range edges {
		if _, ok := known[edge.Source]; !ok {
			continue
		}

		if _, ok := known[edge.Target]; !ok {
			continue
		}

		if edge.Source == edge.Target {
			continue
		}

		if err := g.AddEdge(edge.Source, edge.Target); err != nil {
			continue
		}

		accepted = append(accepted, edge)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("hierarchical layout: %w", err)
	}

	// Longest-path layering: relax targets in topological order.
	layers := make(map[string]int, len(order))

	isConnected := connected(accepted)
	for _, id := range order {
		if _, ok := isConnected[id]; ok {
			layers[id] = 0
		}
	}

	for _, id := range order {
		for _, edge := range accepted {
			if edge.Source != id {
				continue
			}

			if layers[edge.Target] < layers[id]+1 {
				layers[edge.Target] = layers[id] + 1
			}
		}
	}

	placeRows(out, layers)

	return out, nil
}
