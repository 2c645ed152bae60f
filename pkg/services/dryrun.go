package services

import (
	"fmt"

	"github.com/okanero/flowstudio/pkg/models"
)

// MaxDryRunSteps caps the walk so cyclic drafts cannot spin forever.
const MaxDryRunSteps = 100

// DryRunRequest describes a simulated execution of a draft.
type DryRunRequest struct {
	// StartNodeID is where the walk begins. Empty picks the first node.
	StartNodeID string

	// Facts are the guard conditions considered true during the walk.
	Facts map[string]bool
}

// TraceStep is one visited node of a dry run, with the edge taken to leave it.
type TraceStep struct {
	NodeID    string `json:"node_id"`
	NodeLabel string `json:"node_label,omitempty"`
	EdgeID    string `json:"edge_id,omitempty"`
	EdgeLabel string `json:"edge_label,omitempty"`
}

// DryRunResult is the trace of a simulated execution.
type DryRunResult struct {
	Steps     []TraceStep `json:"steps"`
	Completed bool        `json:"completed"` // Reached an end node.
	Truncated bool        `json:"truncated"` // Hit the step cap.
}

// DryRun simulates draft execution without touching stored state.
type DryRun struct{}

// NewDryRun creates a new dry-run service.
func NewDryRun() *DryRun {
	return &DryRun{}
}

// Run walks the draft from the start node. At every node it follows the
// first outgoing edge whose condition holds under the supplied facts, or
// the first outgoing edge when no condition matches. Edges are considered
// in stored order, so the walk is deterministic. The draft is never
// mutated.
func (d *DryRun) Run(draft *models.Draft, req DryRunRequest) (*DryRunResult, error) {
	if draft == nil {
		return nil, ErrDraftNil
	}

	if len(draft.Nodes) == 0 {
		return &DryRunResult{Steps: []TraceStep{}}, nil
	}

	nodes := make(map[string]*models.GraphNode, len(draft.Nodes))
	for _, node := range draft.Nodes {
		nodes[node.ID] = node
	}

	start := req.StartNodeID
	if start == "" {
		start = draft.Nodes[0].ID
	}

	current, ok := nodes[start]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStartNodeUnknown, start)
	}

	result := &DryRunResult{Steps: make([]TraceStep, 0, 8)}

	for range MaxDryRunSteps {
		step := TraceStep{NodeID: current.ID, NodeLabel: current.Label}

		if current.Type == models.NodeTypeEnd {
			result.Steps = append(result.Steps, step)
			result.Completed = true

			return result, nil
		}

		next := d.pickEdge(draft, nodes, current.ID, req.Facts)
		if next == nil {
			result.Steps = append(result.Steps, step)

			return result, nil
		}

		step.EdgeID = next.ID
		step.EdgeLabel = next.Label
		result.Steps = append(result.Steps, step)

		current = nodes[next.Target]
	}

	result.Truncated = true

	return result, nil
}

// pickEdge selects the outgoing edge to follow from a node. Edges whose
// target no longer exists are skipped, matching how renderers treat
// dangling edges.
func (d *DryRun) pickEdge(draft *models.Draft, nodes map[string]*models.GraphNode, nodeID string, facts map[string]bool) *models.GraphEdge {
	var fallback *models.GraphEdge

	for _, edge := range draft.Edges {
		if edge.Source != nodeID {
			continue
		}

		if _, ok := nodes[edge.Target]; !ok {
			continue
		}

		if edge.Condition == "" || facts[edge.Condition] {
			return edge
		}

		if fallback == nil {
			fallback = edge
		}
	}

	return fallback
}
