// Package events defines the event types published on the workflow editing
// plane: publish/hot-reload notifications, proposal decisions, and relayed
// collaboration deltas.
package events

import (
	"time"

	"github.com/okanero/flowstudio/pkg/collab"
	"github.com/okanero/flowstudio/pkg/models"
)

type EventType string

// Topic is the single event topic of the editing plane.
const Topic = "flowstudio.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowPublishedEvent  EventType = "workflow.published"
	HotReloadRequestedEvent EventType = "workflow.hot_reload"
	ProposalDecidedEvent    EventType = "proposal.decided"
	CollabDeltaEvent        EventType = "collab.delta"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	EntityType string         `json:"entity_type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowPublished announces an accepted draft becoming the active version.
type WorkflowPublished struct {
	BaseEvent

	Version     int64  `json:"version"`
	PublishedBy string `json:"published_by"`
}

func (e WorkflowPublished) GetType() EventType { return WorkflowPublishedEvent }

// HotReloadRequested asks running consumers of a workflow definition to pick
// up the freshly published version without a restart.
type HotReloadRequested struct {
	BaseEvent

	Version int64 `json:"version"`
}

func (e HotReloadRequested) GetType() EventType { return HotReloadRequestedEvent }

// ProposalDecided announces an approve/reject decision on a proposal.
type ProposalDecided struct {
	BaseEvent

	ProposalID string                `json:"proposal_id"`
	Status     models.ProposalStatus `json:"status"`
	DecidedBy  string                `json:"decided_by"`
}

func (e ProposalDecided) GetType() EventType { return ProposalDecidedEvent }

// CollabDelta fans a collaboration message out across hub instances. Origin
// identifies the emitting hub so it can skip its own relays.
type CollabDelta struct {
	BaseEvent

	Origin  string          `json:"origin"`
	Message *collab.Message `json:"message"`
}

func (e CollabDelta) GetType() EventType { return CollabDeltaEvent }
