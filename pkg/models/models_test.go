package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNodeType_Valid(t *testing.T) {
	assert.True(t, NodeTypeState.Valid())
	assert.True(t, NodeTypeDecision.Valid())
	assert.True(t, NodeTypeEnd.Valid())
	assert.False(t, NodeType("loop").Valid())
	assert.False(t, NodeType("").Valid())
}

func TestGraphNode_Clone(t *testing.T) {
	node := &GraphNode{
		ID:       "n1",
		Type:     NodeTypeState,
		Label:    "Created",
		Position: Position{X: 10, Y: 20},
		Actions:  []string{"notify"},
		Guards:   []string{"hasOwner"},
	}

	clone := node.Clone()
	clone.Actions[0] = "changed"
	clone.Position.X = 99

	assert.Equal(t, "notify", node.Actions[0])
	assert.InDelta(t, 10.0, node.Position.X, 0)
	assert.Equal(t, node.ID, clone.ID)
}

func TestGraphNode_CloneNil(t *testing.T) {
	var node *GraphNode

	assert.Nil(t, node.Clone())
}

func TestProposal_Decided(t *testing.T) {
	proposal := &Proposal{Status: ProposalStatusPending}
	assert.False(t, proposal.Decided())

	proposal.Status = ProposalStatusApproved
	assert.True(t, proposal.Decided())

	proposal.Status = ProposalStatusRejected
	assert.True(t, proposal.Decided())
}

func TestSLAStatusFor(t *testing.T) {
	threshold := 10 * time.Minute

	assert.Equal(t, SLAStatusOK, SLAStatusFor(time.Minute, threshold))
	assert.Equal(t, SLAStatusWarn, SLAStatusFor(8*time.Minute, threshold))
	assert.Equal(t, SLAStatusWarn, SLAStatusFor(9*time.Minute+59*time.Second, threshold))
	assert.Equal(t, SLAStatusBreach, SLAStatusFor(10*time.Minute, threshold))
	assert.Equal(t, SLAStatusBreach, SLAStatusFor(time.Hour, threshold))
}

func TestSLAStatusFor_NoThreshold(t *testing.T) {
	assert.Equal(t, SLAStatusOK, SLAStatusFor(time.Hour, 0))
	assert.Equal(t, SLAStatusOK, SLAStatusFor(time.Hour, -time.Minute))
}
