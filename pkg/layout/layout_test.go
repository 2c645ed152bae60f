package layout

import (
	"testing"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes() []*models.GraphNode {
	return []*models.GraphNode{
		{ID: "start", Type: models.NodeTypeState, Label: "Start"},
		{ID: "review", Type: models.NodeTypeDecision, Label: "Review"},
		{ID: "approved", Type: models.NodeTypeState, Label: "Approved"},
		{ID: "rejected", Type: models.NodeTypeEnd, Label: "Rejected"},
		{ID: "done", Type: models.NodeTypeEnd, Label: "Done"},
	}
}

func testEdges() []*models.GraphEdge {
	return []*models.GraphEdge{
		{ID: "e1", Source: "start", Target: "review"},
		{ID: "e2", Source: "review", Target: "approved", Condition: "ok"},
		{ID: "e3", Source: "review", Target: "rejected", Condition: "nok"},
		{ID: "e4", Source: "approved", Target: "done"},
	}
}

func strategies() []Strategy {
	return []Strategy{NewHierarchical(), NewCompact()}
}

func TestLayout_EveryNodePositionedOnce(t *testing.T) {
	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			out, err := strategy.Layout(t.Context(), testNodes(), testEdges())
			require.NoError(t, err)
			require.Len(t, out, 5)

			seen := make(map[string]bool)
			for _, node := range out {
				assert.False(t, seen[node.ID])
				seen[node.ID] = true
			}
		})
	}
}

func TestLayout_HonorsEdgeDirection(t *testing.T) {
	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			out, err := strategy.Layout(t.Context(), testNodes(), testEdges())
			require.NoError(t, err)

			byID := make(map[string]*models.GraphNode)
			for _, node := range out {
				byID[node.ID] = node
			}

			assert.Less(t, byID["start"].Position.Y, byID["review"].Position.Y)
			assert.Less(t, byID["review"].Position.Y, byID["approved"].Position.Y)
			assert.Less(t, byID["approved"].Position.Y, byID["done"].Position.Y)
		})
	}
}

func TestLayout_Deterministic(t *testing.T) {
	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			first, err := strategy.Layout(t.Context(), testNodes(), testEdges())
			require.NoError(t, err)

			second, err := strategy.Layout(t.Context(), testNodes(), testEdges())
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestLayout_DoesNotMutateInput(t *testing.T) {
	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			nodes := testNodes()
			nodes[0].Position = models.Position{X: 7, Y: 13}

			_, err := strategy.Layout(t.Context(), nodes, testEdges())
			require.NoError(t, err)

			assert.InDelta(t, 7.0, nodes[0].Position.X, 0)
			assert.InDelta(t, 13.0, nodes[0].Position.Y, 0)
		})
	}
}

func TestLayout_DisconnectedNodesPlaced(t *testing.T) {
	nodes := append(testNodes(),
		&models.GraphNode{ID: "orphan1", Type: models.NodeTypeState, Label: "O1"},
		&models.GraphNode{ID: "orphan2", Type: models.NodeTypeState, Label: "O2"},
	)

	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			out, err := strategy.Layout(t.Context(), nodes, testEdges())
			require.NoError(t, err)
			require.Len(t, out, 7)

			byID := make(map[string]*models.GraphNode)
			for _, node := range out {
				byID[node.ID] = node
			}

			// Orphans share the fallback row, in supplied order.
			assert.InDelta(t, byID["orphan1"].Position.Y, byID["orphan2"].Position.Y, 0)
			assert.Less(t, byID["orphan1"].Position.X, byID["orphan2"].Position.X)
			assert.Greater(t, byID["orphan1"].Position.Y, byID["done"].Position.Y)
		})
	}
}

func TestLayout_NoEdges(t *testing.T) {
	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			out, err := strategy.Layout(t.Context(), testNodes(), nil)
			require.NoError(t, err)
			assert.Len(t, out, 5)
		})
	}
}

func TestLayout_ToleratesDanglingEdges(t *testing.T) {
	edges := append(testEdges(), &models.GraphEdge{ID: "dangling", Source: "review", Target: "ghost"})

	for _, strategy := range strategies() {
		t.Run(strategy.Name(), func(t *testing.T) {
			out, err := strategy.Layout(t.Context(), testNodes(), edges)
			require.NoError(t, err)
			assert.Len(t, out, 5)
		})
	}
}

func TestHierarchical_ToleratesCycles(t *testing.T) {
	edges := append(testEdges(), &models.GraphEdge{ID: "back", Source: "done", Target: "start"})

	out, err := NewHierarchical().Layout(t.Context(), testNodes(), edges)
	require.NoError(t, err)
	assert.Len(t, out, 5)
}
