// Package collab defines the wire protocol for collaborative workflow
// editing sessions. One logical channel exists per workflow entity type;
// messages are JSON envelopes tagged with a message type.
package collab

import (
	"encoding/json"
	"fmt"

	"github.com/okanero/flowstudio/pkg/models"
)

// MessageType tags a protocol envelope.
type MessageType string

// Client-to-server message types.
const (
	MessageJoin       MessageType = "join"
	MessageLeave      MessageType = "leave"
	MessageNodeUpdate MessageType = "node_update"
	MessageEdgeUpdate MessageType = "edge_update"
	MessageNodeDelete MessageType = "node_delete"
	MessageEdgeDelete MessageType = "edge_delete"
	MessageCursor     MessageType = "cursor"
	MessageHeartbeat  MessageType = "hb"
)

// Server-to-client message types. Delta messages carry the acting user's id
// for attribution; a client must drop messages attributed to itself before
// touching editor state.
const (
	MessageUserJoined   MessageType = "user_joined"
	MessageUserLeft     MessageType = "user_left"
	MessageNodeUpdated  MessageType = "node_updated"
	MessageEdgeUpdated  MessageType = "edge_updated"
	MessageNodeDeleted  MessageType = "node_deleted"
	MessageEdgeDeleted  MessageType = "edge_deleted"
	MessageCursorMoved  MessageType = "cursor_moved"
	MessageHeartbeatAck MessageType = "hb_ack"
	MessageError        MessageType = "error"
)

// Message is the protocol envelope. Only the fields relevant to the message
// type are populated.
type Message struct {
	Type   MessageType `json:"type"`
	Entity string      `json:"entity,omitempty"`

	// Attribution. On inbound deltas this is the acting remote user.
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// Full online-user list, sent with user_joined and user_left.
	Users []models.CollaborationUser `json:"users,omitempty"`

	// Delta payloads.
	Node   *models.NodePatch `json:"node,omitempty"`
	Edge   *models.EdgePatch `json:"edge,omitempty"`
	NodeID string            `json:"node_id,omitempty"`
	EdgeID string            `json:"edge_id,omitempty"`

	// Cursor position.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Human-readable error text, for error messages.
	Text string `json:"text,omitempty"`
}

// Encode marshals the envelope for the wire.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}

	return data, nil
}

// Decode parses a wire frame into an envelope.
func Decode(data []byte) (*Message, error) {
	var msg Message

	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode collaboration message: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("collaboration message without a type")
	}

	return &msg, nil
}
