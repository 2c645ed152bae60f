// Package hub implements the server side of the collaborative editing
// protocol. It keeps one room per workflow entity type, tracks online users
// and their cursors, and relays graph deltas between session participants.
package hub

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okanero/flowstudio/pkg/collab"
	"github.com/okanero/flowstudio/pkg/eventbus"
	"github.com/okanero/flowstudio/pkg/events"
	"github.com/okanero/flowstudio/pkg/models"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Hub upgrades websocket connections and routes protocol messages between
// the members of each entity room.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	bus        eventbus.EventBus
	instanceID string

	mu    sync.RWMutex
	rooms map[string]*room
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithEventBus connects the hub to an event bus so deltas reach rooms hosted
// on other instances. instanceID identifies this hub; relays carrying it as
// origin are dropped on receipt.
func WithEventBus(bus eventbus.EventBus, instanceID string) Option {
	return func(h *Hub) {
		h.bus = bus
		h.instanceID = instanceID
	}
}

// NewHub creates a collaboration hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run subscribes to relayed deltas from other hub instances. It blocks until
// the context is cancelled. Without an event bus it returns immediately.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}

	err := h.bus.Handle(events.CollabDeltaEvent, func(_ context.Context, event any) error {
		delta, ok := event.(*events.CollabDelta)
		if !ok || delta.Message == nil {
			return nil
		}

		if delta.Origin == h.instanceID {
			return nil
		}

		h.broadcast(delta.Message.Entity, delta.Message, delta.Message.UserID)

		return nil
	})
	if err != nil {
		return err
	}

	return h.bus.Subscribe(ctx)
}

// ServeHTTP upgrades the request and serves the member until it leaves or
// the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)

		return
	}

	m := &member{conn: conn, send: make(chan []byte, sendBufferSize)}
	go m.writePump()

	h.readLoop(m)
}

// member is one websocket connection inside a room.
type member struct {
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	username string
	room     *room

	closeOnce sync.Once
}

func (m *member) writePump() {
	for frame := range m.send {
		_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := m.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}

	_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = m.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = m.conn.Close()
}

func (m *member) close() {
	m.closeOnce.Do(func() {
		close(m.send)
	})
}

// deliver queues a frame for the member, dropping it when the member is too
// slow to drain its buffer.
func (m *member) deliver(frame []byte) {
	select {
	case m.send <- frame:
	default:
	}
}

func (h *Hub) readLoop(m *member) {
	defer func() {
		h.leave(m)
		m.close()
		_ = m.conn.Close()
	}()

	for {
		_, frame, err := m.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := collab.Decode(frame)
		if err != nil {
			h.sendError(m, "malformed message")

			continue
		}

		if m.room == nil && msg.Type != collab.MessageJoin {
			h.sendError(m, "join required before "+string(msg.Type))

			continue
		}

		switch msg.Type {
		case collab.MessageJoin:
			h.join(m, msg)
		case collab.MessageLeave:
			return
		case collab.MessageHeartbeat:
			h.sendTo(m, &collab.Message{Type: collab.MessageHeartbeatAck})
		case collab.MessageCursor:
			h.cursor(m, msg)
		case collab.MessageNodeUpdate:
			h.relay(m, &collab.Message{Type: collab.MessageNodeUpdated, Node: msg.Node})
		case collab.MessageEdgeUpdate:
			h.relay(m, &collab.Message{Type: collab.MessageEdgeUpdated, Edge: msg.Edge})
		case collab.MessageNodeDelete:
			h.relay(m, &collab.Message{Type: collab.MessageNodeDeleted, NodeID: msg.NodeID})
		case collab.MessageEdgeDelete:
			h.relay(m, &collab.Message{Type: collab.MessageEdgeDeleted, EdgeID: msg.EdgeID})
		default:
			h.sendError(m, "unsupported message type "+string(msg.Type))
		}
	}
}

func (h *Hub) join(m *member, msg *collab.Message) {
	if msg.Entity == "" || msg.UserID == "" {
		h.sendError(m, "join requires entity and user_id")

		return
	}

	if m.room != nil {
		// Re-joining the same room refreshes the username only.
		m.username = msg.Username

		return
	}

	m.userID = msg.UserID
	m.username = msg.Username

	r := h.roomFor(msg.Entity)
	r.add(m)
	m.room = r

	h.logger.Debug("user joined", "entity", r.entity, "user_id", m.userID)

	h.broadcast(r.entity, &collab.Message{
		Type:     collab.MessageUserJoined,
		Entity:   r.entity,
		UserID:   m.userID,
		Username: m.username,
		Users:    r.users(),
	}, "")
}

func (h *Hub) leave(m *member) {
	r := m.room
	if r == nil {
		return
	}

	m.room = nil
	r.remove(m)

	h.logger.Debug("user left", "entity", r.entity, "user_id", m.userID)

	h.broadcast(r.entity, &collab.Message{
		Type:     collab.MessageUserLeft,
		Entity:   r.entity,
		UserID:   m.userID,
		Username: m.username,
		Users:    r.users(),
	}, "")
}

func (h *Hub) cursor(m *member, msg *collab.Message) {
	m.room.setCursor(models.Cursor{
		UserID:   m.userID,
		Username: m.username,
		X:        msg.X,
		Y:        msg.Y,
	})

	h.relay(m, &collab.Message{Type: collab.MessageCursorMoved, X: msg.X, Y: msg.Y})
}

// relay attributes the outbound message to the sender, delivers it to every
// other room member, and fans it out over the event bus when one is wired.
func (h *Hub) relay(m *member, out *collab.Message) {
	out.Entity = m.room.entity
	out.UserID = m.userID
	out.Username = m.username

	h.broadcast(out.Entity, out, m.userID)

	if h.bus != nil && out.Type != collab.MessageCursorMoved {
		event := &events.CollabDelta{
			BaseEvent: events.BaseEvent{
				ID:         h.bus.GenerateID(),
				Type:       events.CollabDeltaEvent,
				Timestamp:  time.Now().UTC(),
				EntityType: out.Entity,
			},
			Origin:  h.instanceID,
			Message: out,
		}
		if err := h.bus.Publish(context.Background(), out.Entity, event); err != nil {
			h.logger.Error("failed to relay collaboration delta", "error", err)
		}
	}
}

// broadcast sends a message to every member of the entity room except the
// user identified by excludeUserID.
func (h *Hub) broadcast(entity string, msg *collab.Message, excludeUserID string) {
	h.mu.RLock()
	r, ok := h.rooms[entity]
	h.mu.RUnlock()

	if !ok {
		return
	}

	frame, err := msg.Encode()
	if err != nil {
		h.logger.Error("failed to encode broadcast", "type", msg.Type, "error", err)

		return
	}

	for _, m := range r.members() {
		if excludeUserID != "" && m.userID == excludeUserID {
			continue
		}

		m.deliver(frame)
	}
}

func (h *Hub) sendTo(m *member, msg *collab.Message) {
	frame, err := msg.Encode()
	if err != nil {
		h.logger.Error("failed to encode message", "type", msg.Type, "error", err)

		return
	}

	m.deliver(frame)
}

func (h *Hub) sendError(m *member, text string) {
	h.sendTo(m, &collab.Message{Type: collab.MessageError, Text: text})
}

func (h *Hub) roomFor(entity string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[entity]
	if !ok {
		r = &room{
			entity:  entity,
			byConn:  make(map[*member]struct{}),
			cursors: make(map[string]models.Cursor),
		}
		h.rooms[entity] = r
	}

	return r
}

// Users returns the online users of an entity room.
func (h *Hub) Users(entity string) []models.CollaborationUser {
	h.mu.RLock()
	r, ok := h.rooms[entity]
	h.mu.RUnlock()

	if !ok {
		return nil
	}

	return r.users()
}

// Cursors returns the last known cursor of each room member.
func (h *Hub) Cursors(entity string) []models.Cursor {
	h.mu.RLock()
	r, ok := h.rooms[entity]
	h.mu.RUnlock()

	if !ok {
		return nil
	}

	return r.cursorList()
}

// room holds the members editing one entity type.
type room struct {
	entity string

	mu      sync.RWMutex
	byConn  map[*member]struct{}
	cursors map[string]models.Cursor
}

func (r *room) add(m *member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byConn[m] = struct{}{}
}

func (r *room) remove(m *member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byConn, m)
	delete(r.cursors, m.userID)
}

func (r *room) setCursor(cursor models.Cursor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cursors[cursor.UserID] = cursor
}

func (r *room) members() []*member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*member, 0, len(r.byConn))
	for m := range r.byConn {
		members = append(members, m)
	}

	return members
}

func (r *room) users() []models.CollaborationUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.byConn))
	users := make([]models.CollaborationUser, 0, len(r.byConn))

	for m := range r.byConn {
		if _, ok := seen[m.userID]; ok {
			continue
		}

		seen[m.userID] = struct{}{}
		users = append(users, models.CollaborationUser{UserID: m.userID, Username: m.username})
	}

	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })

	return users
}

func (r *room) cursorList() []models.Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cursors := make([]models.Cursor, 0, len(r.cursors))
	for _, c := range r.cursors {
		cursors = append(cursors, c)
	}

	sort.Slice(cursors, func(i, j int) bool { return cursors[i].UserID < cursors[j].UserID })

	return cursors
}
