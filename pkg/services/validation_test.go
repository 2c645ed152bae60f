package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/testutil"
)

func issueCodes(issues []Issue) []string {
	codes := make([]string, 0, len(issues))
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}

	return codes
}

func TestValidate_CleanDraft(t *testing.T) {
	report, err := NewValidation().Validate(testutil.CreateTestDraft("order"))
	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidate_NilDraft(t *testing.T) {
	_, err := NewValidation().Validate(nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestValidate_DuplicateNodeIDs(t *testing.T) {
	draft := testutil.CreateTestDraft("order", func(d *models.Draft) {
		d.Nodes = append(d.Nodes, testutil.CreateTestNode(testutil.WithNodeID("start")))
	})

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report.Errors), "node_id_duplicate")
}

func TestValidate_DanglingEdgeIsWarningOnly(t *testing.T) {
	draft := testutil.CreateTestDraft("order", func(d *models.Draft) {
		d.Edges = append(d.Edges, testutil.CreateTestEdge("start", "ghost"))
	})

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Contains(t, issueCodes(report.Warnings), "edge_target_dangling")
}

func TestValidate_MissingEndNode(t *testing.T) {
	draft := &models.Draft{
		EntityType: "order",
		Nodes:      []*models.GraphNode{testutil.CreateTestNode(testutil.WithNodeID("start"))},
	}

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report.Errors), "no_end_node")
}

func TestValidate_DecisionNeedsTwoBranches(t *testing.T) {
	draft := testutil.CreateTestDraft("order", func(d *models.Draft) {
		d.Nodes = append(d.Nodes, testutil.CreateTestNode(
			testutil.WithNodeID("check"),
			testutil.WithNodeType(models.NodeTypeDecision),
		))
		d.Edges = append(d.Edges, testutil.CreateTestEdge("check", "done"))
	})

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report.Errors), "decision_needs_branches")
}

func TestValidate_CycleIsWarning(t *testing.T) {
	draft := testutil.CreateTestDraft("order", func(d *models.Draft) {
		d.Nodes = append(d.Nodes, testutil.CreateTestNode(testutil.WithNodeID("review")))
		d.Edges = append(d.Edges,
			testutil.CreateTestEdge("start", "review"),
			testutil.CreateTestEdge("review", "start"),
		)
	})

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)

	// Rework loops are legal; publishing proceeds with a warning.
	assert.True(t, report.Valid())
	assert.Contains(t, issueCodes(report.Warnings), "cycle_detected")
}

func TestValidate_SelfLoopIsWarning(t *testing.T) {
	draft := testutil.CreateTestDraft("order", func(d *models.Draft) {
		d.Edges = append(d.Edges, testutil.CreateTestEdge("start", "start"))
	})

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)
	assert.True(t, report.Valid())
	assert.Contains(t, issueCodes(report.Warnings), "edge_self_loop")
}

func TestValidate_UnknownNodeType(t *testing.T) {
	draft := testutil.CreateTestDraft("order", func(d *models.Draft) {
		d.Nodes = append(d.Nodes, testutil.CreateTestNode(
			testutil.WithNodeID("weird"),
			testutil.WithNodeType(models.NodeType("banana")),
		))
	})

	report, err := NewValidation().Validate(draft)
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report.Errors), "node_type_unknown")
}
