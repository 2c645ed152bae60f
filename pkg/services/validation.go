package services

import (
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/okanero/flowstudio/pkg/models"
)

// Issue is one finding of a draft validation run.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
}

// ValidationReport is the outcome of validating a draft graph. Errors block
// publishing; warnings do not.
type ValidationReport struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the draft may be published.
func (r *ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

// Validation checks drafts for structural problems before publishing.
type Validation struct{}

// NewValidation creates a new validation service.
func NewValidation() *Validation {
	return &Validation{}
}

// Validate runs every structural check over the draft graph.
//
// Dangling edges are a warning, not an error: collaborative deletes leave
// them behind routinely and renderers already filter them out.
func (v *Validation) Validate(draft *models.Draft) (*ValidationReport, error) {
	if draft == nil {
		return nil, ErrDraftNil
	}

	report := &ValidationReport{
		Errors:   make([]Issue, 0),
		Warnings: make([]Issue, 0),
	}

	nodeIDs := v.checkNodes(draft, report)
	v.checkEdges(draft, nodeIDs, report)
	v.checkCycles(draft, nodeIDs, report)

	return report, nil
}

func (v *Validation) checkNodes(draft *models.Draft, report *ValidationReport) map[string]*models.GraphNode {
	nodeIDs := make(map[string]*models.GraphNode, len(draft.Nodes))
	outgoing := make(map[string]int, len(draft.Nodes))
	hasEnd := false

	for _, node := range draft.Nodes {
		if node.ID == "" {
			report.Errors = append(report.Errors, Issue{
				Code:    "node_id_empty",
				Message: "node has no id",
			})

			continue
		}

		if _, dup := nodeIDs[node.ID]; dup {
			report.Errors = append(report.Errors, Issue{
				Code:    "node_id_duplicate",
				Message: fmt.Sprintf("node id %q is used more than once", node.ID),
				NodeID:  node.ID,
			})

			continue
		}

		nodeIDs[node.ID] = node

		if !node.Type.Valid() {
			report.Errors = append(report.Errors, Issue{
				Code:    "node_type_unknown",
				Message: fmt.Sprintf("node %q has unknown type %q", node.ID, node.Type),
				NodeID:  node.ID,
			})
		}

		if node.Type == models.NodeTypeEnd {
			hasEnd = true
		}
	}

	for _, edge := range draft.Edges {
		outgoing[edge.Source]++
	}

	for _, node := range draft.Nodes {
		if node.Type == models.NodeTypeDecision && outgoing[node.ID] < 2 {
			report.Errors = append(report.Errors, Issue{
				Code:    "decision_needs_branches",
				Message: fmt.Sprintf("decision node %q needs at least two outgoing edges", node.ID),
				NodeID:  node.ID,
			})
		}

		if node.Type == models.NodeTypeEnd && outgoing[node.ID] > 0 {
			report.Warnings = append(report.Warnings, Issue{
				Code:    "end_has_outgoing",
				Message: fmt.Sprintf("end node %q has outgoing edges that will never run", node.ID),
				NodeID:  node.ID,
			})
		}
	}

	if len(draft.Nodes) > 0 && !hasEnd {
		report.Errors = append(report.Errors, Issue{
			Code:    "no_end_node",
			Message: "workflow has no end node",
		})
	}

	return nodeIDs
}

func (v *Validation) checkEdges(draft *models.Draft, nodeIDs map[string]*models.GraphNode, report *ValidationReport) {
	seen := make(map[string]struct{}, len(draft.Edges))

	for _, edge := range draft.Edges {
		if edge.ID == "" {
			report.Errors = append(report.Errors, Issue{
				Code:    "edge_id_empty",
				Message: "edge has no id",
			})

			continue
		}

		if _, dup := seen[edge.ID]; dup {
			report.Errors = append(report.Errors, Issue{
				Code:    "edge_id_duplicate",
				Message: fmt.Sprintf("edge id %q is used more than once", edge.ID),
				EdgeID:  edge.ID,
			})

			continue
		}

		seen[edge.ID] = struct{}{}

		if _, ok := nodeIDs[edge.Source]; !ok {
			report.Warnings = append(report.Warnings, Issue{
				Code:    "edge_source_dangling",
				Message: fmt.Sprintf("edge %q points from missing node %q", edge.ID, edge.Source),
				EdgeID:  edge.ID,
			})
		}

		if _, ok := nodeIDs[edge.Target]; !ok {
			report.Warnings = append(report.Warnings, Issue{
				Code:    "edge_target_dangling",
				Message: fmt.Sprintf("edge %q points to missing node %q", edge.ID, edge.Target),
				EdgeID:  edge.ID,
			})
		}
	}
}

// checkCycles flags edges that close a directed cycle. Rework loops are
// legal in a state machine, so cycles only warn.
func (v *Validation) checkCycles(draft *models.Draft, nodeIDs map[string]*models.GraphNode, report *ValidationReport) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for id := range nodeIDs {
		_ = g.AddVertex(id)
	}

	for _, edge := range draft.Edges {
		if _, ok := nodeIDs[edge.Source]; !ok {
			continue
		}

		if _, ok := nodeIDs[edge.Target]; !ok {
			continue
		}

		if edge.Source == edge.Target {
			report.Warnings = append(report.Warnings, Issue{
				Code:    "edge_self_loop",
				Message: fmt.Sprintf("edge %q loops node %q onto itself", edge.ID, edge.Source),
				EdgeID:  edge.ID,
			})

			continue
		}

		if err := g.AddEdge(edge.Source, edge.Target); err != nil {
			report.Warnings = append(report.Warnings, Issue{
				Code:    "cycle_detected",
				Message: fmt.Sprintf("edge %q from %q to %q closes a cycle", edge.ID, edge.Source, edge.Target),
				EdgeID:  edge.ID,
			})
		}
	}
}
