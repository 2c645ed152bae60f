package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanero/flowstudio/pkg/models"
)

func TestDecodeRoundTrip(t *testing.T) {
	label := "Review"
	msg := &Message{
		Type:     MessageNodeUpdated,
		Entity:   "order",
		UserID:   "u-1",
		Username: "alice",
		Node:     &models.NodePatch{ID: "n-1", Label: &label},
	}

	frame, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, MessageNodeUpdated, decoded.Type)
	assert.Equal(t, "u-1", decoded.UserID)
	require.NotNil(t, decoded.Node)
	assert.Equal(t, "Review", *decoded.Node.Label)
}

func TestDecodeRejectsInvalidFrames(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"entity":"order"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a type")
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	frame, err := (&Message{Type: MessageHeartbeat}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hb"}`, string(frame))
}
