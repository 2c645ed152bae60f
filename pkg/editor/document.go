// Package editor holds the in-memory state of the workflow document being
// edited: the current node/edge sets plus a linear undo/redo history over
// local edits.
//
// Conflict policy: remote deltas are applied in arrival order with
// last-write-wins semantics per node/edge id. Two collaborators editing the
// same element concurrently will overwrite each other non-deterministically;
// this is the accepted contract for graph collaboration, distinct from the
// ETag-guarded single-entity CRUD path.
package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/okanero/flowstudio/pkg/models"
)

// DefaultHistoryLimit bounds the undo history. Once exceeded, the oldest
// entry is evicted: the history behaves as a sliding window, not a reset.
const DefaultHistoryLimit = 50

// ErrNodeNotFound is returned when an operation names a node id that is not
// part of the current state.
var ErrNodeNotFound = fmt.Errorf("node not found")

// Document is the authoritative in-memory graph for one entity type.
// All methods are safe for concurrent use; local edits and remote deltas
// alike are serialized through one mutex.
type Document struct {
	mu         sync.Mutex
	entityType string
	history    []*Snapshot
	index      int
	limit      int
}

// Option configures a Document.
type Option func(*Document)

// WithHistoryLimit overrides the history capacity. Values below 1 are ignored.
func WithHistoryLimit(limit int) Option {
	return func(d *Document) {
		if limit >= 1 {
			d.limit = limit
		}
	}
}

// NewDocument creates an empty document. The empty state is history entry
// zero, so the first edit is undoable back to it.
func NewDocument(entityType string, opts ...Option) *Document {
	doc := &Document{
		entityType: entityType,
		history:    []*Snapshot{{}},
		index:      0,
		limit:      DefaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(doc)
	}

	return doc
}

// EntityType returns the entity type this document edits.
func (d *Document) EntityType() string {
	return d.entityType
}

// Current returns a deep copy of the current snapshot.
func (d *Document) Current() *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.history[d.index].Clone()
}

// ApplyLocal performs one discrete user edit: the mutator runs on a copy of
// the current snapshot, any redo entries past the current index are
// truncated, and the result becomes the new current state. The oldest entry
// is evicted once the history exceeds its capacity.
func (d *Document) ApplyLocal(mutate func(*Snapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.history[d.index].Clone()
	mutate(next)

	d.history = append(d.history[:d.index+1], next)
	d.index++

	if len(d.history) > d.limit {
		overflow := len(d.history) - d.limit
		d.history = d.history[overflow:]
		d.index -= overflow
	}
}

// Undo moves the history pointer back one entry. It reports whether it
// moved; at the oldest retained entry it is a no-op. Undo never pushes a
// history entry.
func (d *Document) Undo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index == 0 {
		return false
	}

	d.index--

	return true
}

// Redo moves the history pointer forward one entry, if a truncatable future
// exists.
func (d *Document) Redo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index >= len(d.history)-1 {
		return false
	}

	d.index++

	return true
}

// CanUndo reports whether Undo would move.
func (d *Document) CanUndo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.index > 0
}

// CanRedo reports whether Redo would move.
func (d *Document) CanRedo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.index < len(d.history)-1
}

// HistoryLen returns the number of retained history entries.
func (d *Document) HistoryLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.history)
}

// Remote delta application. Collaborator edits live outside the local
// timeline, so they land in every retained snapshot, past and future: undo
// and redo replay local edits over the remote state instead of reverting it.

// ApplyRemoteNode upserts a node from a remote delta.
func (d *Document) ApplyRemoteNode(patch *models.NodePatch) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, snap := range d.history {
		snap.UpsertNode(patch)
	}
}

// ApplyRemoteEdge upserts an edge from a remote delta.
func (d *Document) ApplyRemoteEdge(patch *models.EdgePatch) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, snap := range d.history {
		snap.UpsertEdge(patch)
	}
}

// ApplyRemoteNodeDelete removes a node from a remote delta. Incident edges
// are left dangling.
func (d *Document) ApplyRemoteNodeDelete(nodeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, snap := range d.history {
		snap.DeleteNode(nodeID)
	}
}

// ApplyRemoteEdgeDelete removes an edge from a remote delta.
func (d *Document) ApplyRemoteEdgeDelete(edgeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, snap := range d.history {
		snap.DeleteEdge(edgeID)
	}
}

// DuplicateNode copies an existing node under a freshly generated id and
// returns the new id. A fresh UUID per copy means duplicating twice can
// never collide.
func (d *Document) DuplicateNode(nodeID string) (string, error) {
	current := d.Current()

	source := current.Node(nodeID)
	if source == nil {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	newID := fmt.Sprintf("%s-%s", source.ID, uuid.NewString()[:8])

	d.ApplyLocal(func(s *Snapshot) {
		clone := source.Clone()
		clone.ID = newID
		clone.Position.X += 40
		clone.Position.Y += 40
		s.Nodes = append(s.Nodes, clone)
	})

	return newID, nil
}
