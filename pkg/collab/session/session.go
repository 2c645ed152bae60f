// Package session binds a collaboration client to a local editor document.
// Local edits go through the undo history and out to the room; remote deltas
// land in the document without becoming locally undoable. Conflicting edits
// resolve last-write-wins at the field level.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/okanero/flowstudio/pkg/collab/client"
	"github.com/okanero/flowstudio/pkg/editor"
	"github.com/okanero/flowstudio/pkg/models"
)

// Document narrows editor.Document to what the session drives.
type Document interface {
	ApplyLocal(mutate func(*editor.Snapshot))
	ApplyRemoteNode(patch *models.NodePatch)
	ApplyRemoteEdge(patch *models.EdgePatch)
	ApplyRemoteNodeDelete(nodeID string)
	ApplyRemoteEdgeDelete(edgeID string)
}

// Config describes a session to open.
type Config struct {
	URL      string
	Entity   string
	UserID   string
	Username string
	Logger   *slog.Logger

	// OnChange, when set, fires after any remote delta lands in the
	// document, and on roster or connection changes.
	OnChange func()

	// ClientOptions are passed through to the underlying protocol client.
	ClientOptions []client.Option
}

// Session is one user's live editing session on an entity type.
type Session struct {
	doc    Document
	client *client.Client
	logger *slog.Logger

	mu        sync.RWMutex
	users     []models.CollaborationUser
	cursors   map[string]models.Cursor
	connected bool
}

// New creates a session over the given document. The session is offline
// until Join is called.
func New(doc Document, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		doc:     doc,
		logger:  logger,
		cursors: make(map[string]models.Cursor),
	}

	notify := func() {
		if cfg.OnChange != nil {
			cfg.OnChange()
		}
	}

	callbacks := client.Callbacks{
		OnUserJoined: func(_ models.CollaborationUser, online []models.CollaborationUser) {
			s.setUsers(online)
			notify()
		},
		OnUserLeft: func(user models.CollaborationUser, online []models.CollaborationUser) {
			s.setUsers(online)
			s.dropCursor(user.UserID)
			notify()
		},
		OnNodeUpdated: func(_ string, patch models.NodePatch) {
			doc.ApplyRemoteNode(&patch)
			notify()
		},
		OnEdgeUpdated: func(_ string, patch models.EdgePatch) {
			doc.ApplyRemoteEdge(&patch)
			notify()
		},
		OnNodeDeleted: func(_ string, nodeID string) {
			doc.ApplyRemoteNodeDelete(nodeID)
			notify()
		},
		OnEdgeDeleted: func(_ string, edgeID string) {
			doc.ApplyRemoteEdgeDelete(edgeID)
			notify()
		},
		OnCursorMoved: func(cursor models.Cursor) {
			s.setCursor(cursor)
			notify()
		},
		OnError: func(err error) {
			logger.Warn("collaboration session error", "entity", cfg.Entity, "error", err)
		},
		OnConnectionChange: func(state client.State) {
			connected := state == client.StateConnected
			s.setConnected(connected)

			// A dropped connection invalidates everything we knew about
			// the room; the roster is rebuilt from join broadcasts.
			if !connected {
				s.clearRoster()
			}

			notify()
		},
	}

	opts := append([]client.Option{client.WithLogger(logger)}, cfg.ClientOptions...)
	s.client = client.NewClient(cfg.URL, cfg.Entity, cfg.UserID, cfg.Username, callbacks, opts...)

	return s
}

// Join connects to the room. Joining an already joined session is a no-op.
func (s *Session) Join(ctx context.Context) error {
	return s.client.Connect(ctx)
}

// Leave disconnects from the room. Safe to call repeatedly.
func (s *Session) Leave() {
	s.client.Disconnect()
	s.setConnected(false)
	s.clearRoster()
}

// Connected reports whether the session currently has a live connection.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connected
}

// Users returns the online users of the room.
func (s *Session) Users() []models.CollaborationUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.CollaborationUser(nil), s.users...)
}

// Cursors returns the last known cursor of each remote user.
func (s *Session) Cursors() []models.Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursors := make([]models.Cursor, 0, len(s.cursors))
	for _, c := range s.cursors {
		cursors = append(cursors, c)
	}

	return cursors
}

// UpsertNode applies a node patch locally (undoable) and publishes it.
func (s *Session) UpsertNode(patch models.NodePatch) {
	s.doc.ApplyLocal(func(snap *editor.Snapshot) {
		snap.UpsertNode(&patch)
	})
	s.client.SendNodeUpdate(patch)
}

// UpsertEdge applies an edge patch locally (undoable) and publishes it.
func (s *Session) UpsertEdge(patch models.EdgePatch) {
	s.doc.ApplyLocal(func(snap *editor.Snapshot) {
		snap.UpsertEdge(&patch)
	})
	s.client.SendEdgeUpdate(patch)
}

// DeleteNode removes a node locally (undoable) and publishes the removal.
func (s *Session) DeleteNode(nodeID string) {
	s.doc.ApplyLocal(func(snap *editor.Snapshot) {
		snap.DeleteNode(nodeID)
	})
	s.client.SendNodeDelete(nodeID)
}

// DeleteEdge removes an edge locally (undoable) and publishes the removal.
func (s *Session) DeleteEdge(edgeID string) {
	s.doc.ApplyLocal(func(snap *editor.Snapshot) {
		snap.DeleteEdge(edgeID)
	})
	s.client.SendEdgeDelete(edgeID)
}

// MoveCursor publishes the local cursor position. Cursor moves are ephemeral
// and never enter the undo history.
func (s *Session) MoveCursor(x, y float64) {
	s.client.SendCursor(x, y)
}

func (s *Session) setUsers(users []models.CollaborationUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = append([]models.CollaborationUser(nil), users...)
}

func (s *Session) setCursor(cursor models.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[cursor.UserID] = cursor
}

func (s *Session) dropCursor(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cursors, userID)
}

func (s *Session) setConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = connected
}

func (s *Session) clearRoster() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = nil
	s.cursors = make(map[string]models.Cursor)
}
