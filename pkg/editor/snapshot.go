package editor

import "github.com/okanero/flowstudio/pkg/models"

// Snapshot is one immutable state of the edited graph: the full node and
// edge sets. History entries are snapshots; mutating helpers always operate
// on a caller-owned clone.
type Snapshot struct {
	Nodes []*models.GraphNode `json:"nodes"`
	Edges []*models.GraphEdge `json:"edges"`
}

// Clone deep-copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		Nodes: make([]*models.GraphNode, len(s.Nodes)),
		Edges: make([]*models.GraphEdge, len(s.Edges)),
	}

	for i, node := range s.Nodes {
		clone.Nodes[i] = node.Clone()
	}

	for i, edge := range s.Edges {
		clone.Edges[i] = edge.Clone()
	}

	return clone
}

// Node returns the node with the given id, or nil.
func (s *Snapshot) Node(id string) *models.GraphNode {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Edge returns the edge with the given id, or nil.
func (s *Snapshot) Edge(id string) *models.GraphEdge {
	for _, edge := range s.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}

// ConnectedEdges returns the edges whose both endpoints resolve to a live
// node. Deleting a node never cascades, so dangling edges are expected;
// renderers filter through this instead of treating them as corruption.
func (s *Snapshot) ConnectedEdges() []*models.GraphEdge {
	ids := make(map[string]struct{}, len(s.Nodes))
	for _, node := range s.Nodes {
		ids[node.ID] = struct{}{}
	}

	connected := make([]*models.GraphEdge, 0, len(s.Edges))

	for _, edge := range s.Edges {
		if _, ok := ids[edge.Source]; !ok {
			continue
		}

		if _, ok := ids[edge.Target]; !ok {
			continue
		}

		connected = append(connected, edge)
	}

	return connected
}

// UpsertNode applies a partial node update in place, creating the node if it
// does not exist yet. Unset patch fields leave the current value untouched.
func (s *Snapshot) UpsertNode(patch *models.NodePatch) {
	node := s.Node(patch.ID)
	if node == nil {
		node = &models.GraphNode{ID: patch.ID, Type: models.NodeTypeState}
		s.Nodes = append(s.Nodes, node)
	}

	if patch.Type != nil {
		node.Type = *patch.Type
	}

	if patch.Label != nil {
		node.Label = *patch.Label
	}

	if patch.Position != nil {
		node.Position = *patch.Position
	}

	if patch.Actions != nil {
		node.Actions = append([]string(nil), patch.Actions...)
	}

	if patch.Guards != nil {
		node.Guards = append([]string(nil), patch.Guards...)
	}
}

// UpsertEdge applies a partial edge update in place, creating the edge if it
// does not exist yet.
func (s *Snapshot) UpsertEdge(patch *models.EdgePatch) {
	edge := s.Edge(patch.ID)
	if edge == nil {
		edge = &models.GraphEdge{ID: patch.ID}
		s.Edges = append(s.Edges, edge)
	}

	if patch.Source != nil {
		edge.Source = *patch.Source
	}

	if patch.Target != nil {
		edge.Target = *patch.Target
	}

	if patch.Label != nil {
		edge.Label = *patch.Label
	}

	if patch.Condition != nil {
		edge.Condition = *patch.Condition
	}
}

// DeleteNode removes the node by id. Incident edges stay.
func (s *Snapshot) DeleteNode(id string) {
	for i, node := range s.Nodes {
		if node.ID == id {
			s.Nodes = append(s.Nodes[:i], s.Nodes[i+1:]...)

			return
		}
	}
}

// DeleteEdge removes the edge by id.
func (s *Snapshot) DeleteEdge(id string) {
	for i, edge := range s.Edges {
		if edge.ID == id {
			s.Edges = append(s.Edges[:i], s.Edges[i+1:]...)

			return
		}
	}
}
