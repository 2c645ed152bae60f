// Package client implements the connecting side of the collaborative editing
// protocol: a websocket client that joins an entity room, streams graph
// deltas and cursor positions, and recovers dropped connections with
// exponential backoff.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/okanero/flowstudio/pkg/collab"
	"github.com/okanero/flowstudio/pkg/models"
)

// State describes the connection lifecycle. Error is not terminal; a client
// in the error state is attempting to reconnect.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const (
	// DefaultHeartbeatInterval is how often an idle client pings the hub.
	DefaultHeartbeatInterval = 30 * time.Second

	reconnectInitialInterval = time.Second
	reconnectMaxInterval     = 30 * time.Second
	reconnectMaxAttempts     = 5

	writeWait = 10 * time.Second
)

// ErrReconnectFailed is reported through OnError after every reconnect
// attempt has been exhausted.
var ErrReconnectFailed = errors.New("failed to reconnect to collaboration session")

// Callbacks receive session events. Nil entries are skipped. Callbacks run on
// the client's read goroutine and must not block.
type Callbacks struct {
	OnUserJoined       func(user models.CollaborationUser, online []models.CollaborationUser)
	OnUserLeft         func(user models.CollaborationUser, online []models.CollaborationUser)
	OnNodeUpdated      func(userID string, patch models.NodePatch)
	OnEdgeUpdated      func(userID string, patch models.EdgePatch)
	OnNodeDeleted      func(userID, nodeID string)
	OnEdgeDeleted      func(userID, edgeID string)
	OnCursorMoved      func(cursor models.Cursor)
	OnError            func(err error)
	OnConnectionChange func(state State)
}

// Client is a collaboration session participant for one entity type.
type Client struct {
	url       string
	entity    string
	userID    string
	username  string
	callbacks Callbacks
	logger    *slog.Logger
	dialer    *websocket.Dialer
	heartbeat time.Duration
	backoff   time.Duration

	mu          sync.Mutex
	conn        *websocket.Conn
	state       State
	intentional bool
	generation  int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithHeartbeatInterval overrides the heartbeat cadence.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.heartbeat = interval
	}
}

// WithReconnectInterval overrides the initial reconnect backoff delay. The
// doubling factor, cap, and attempt budget are unchanged.
func WithReconnectInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.backoff = interval
	}
}

// NewClient creates a client for the session endpoint at url, joining the
// room of the given entity type as the given user.
func NewClient(url, entity, userID, username string, callbacks Callbacks, opts ...Option) *Client {
	c := &Client{
		url:       url,
		entity:    entity,
		userID:    userID,
		username:  username,
		callbacks: callbacks,
		logger:    slog.Default(),
		dialer:    websocket.DefaultDialer,
		heartbeat: DefaultHeartbeatInterval,
		backoff:   reconnectInitialInterval,
		state:     StateDisconnected,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connect dials the session endpoint and joins the entity room. Calling
// Connect while connected or connecting is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()

		return nil
	}

	c.intentional = false
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()

		return fmt.Errorf("failed to connect to collaboration session: %w", err)
	}

	c.attach(conn)

	return nil
}

// Disconnect leaves the room and closes the connection. The client will not
// reconnect. Disconnecting an already disconnected client is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.intentional = true
	conn := c.conn
	c.conn = nil
	c.generation++

	alreadyDown := c.state == StateDisconnected
	c.setStateLocked(StateDisconnected)

	if alreadyDown || conn == nil {
		return
	}

	// Best effort: tell the hub we are leaving before tearing down. The
	// leave frame is written under c.mu; the heartbeat loop writes under
	// the same lock and the connection allows only one writer.
	frame, err := (&collab.Message{Type: collab.MessageLeave}).Encode()
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}

	_ = conn.Close()
}

// SendNodeUpdate publishes a node upsert to the room. Sends are fire and
// forget; a disconnected client drops them silently.
func (c *Client) SendNodeUpdate(patch models.NodePatch) {
	c.send(&collab.Message{Type: collab.MessageNodeUpdate, Node: &patch})
}

// SendEdgeUpdate publishes an edge upsert to the room.
func (c *Client) SendEdgeUpdate(patch models.EdgePatch) {
	c.send(&collab.Message{Type: collab.MessageEdgeUpdate, Edge: &patch})
}

// SendNodeDelete publishes a node removal to the room.
func (c *Client) SendNodeDelete(nodeID string) {
	c.send(&collab.Message{Type: collab.MessageNodeDelete, NodeID: nodeID})
}

// SendEdgeDelete publishes an edge removal to the room.
func (c *Client) SendEdgeDelete(edgeID string) {
	c.send(&collab.Message{Type: collab.MessageEdgeDelete, EdgeID: edgeID})
}

// SendCursor publishes the local cursor position.
func (c *Client) SendCursor(x, y float64) {
	c.send(&collab.Message{Type: collab.MessageCursor, X: x, Y: y})
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, err
	}

	join := &collab.Message{
		Type:     collab.MessageJoin,
		Entity:   c.entity,
		UserID:   c.userID,
		Username: c.username,
	}

	frame, err := join.Encode()
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		_ = conn.Close()

		return nil, err
	}

	return conn, nil
}

// attach installs a freshly joined connection and starts its pumps.
func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.generation++
	generation := c.generation
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	go c.readLoop(conn, generation)
	go c.heartbeatLoop(conn, generation)
}

// current reports whether conn is still the active connection for this
// generation; stale goroutines from a replaced connection use it to exit.
func (c *Client) current(generation int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation == generation
}

func (c *Client) readLoop(conn *websocket.Conn, generation int) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if c.current(generation) {
				c.connectionLost()
			}

			return
		}

		msg, err := collab.Decode(frame)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)

			continue
		}

		c.dispatch(msg)
	}
}

func (c *Client) heartbeatLoop(conn *websocket.Conn, generation int) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	frame, err := (&collab.Message{Type: collab.MessageHeartbeat}).Encode()
	if err != nil {
		return
	}

	for range ticker.C {
		if !c.current(generation) {
			return
		}

		c.mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, frame)
		c.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// dispatch routes an inbound message to its callback. Deltas and cursor
// moves attributed to this client are echoes of its own sends and are
// dropped before they can touch editor state.
func (c *Client) dispatch(msg *collab.Message) {
	switch msg.Type {
	case collab.MessageUserJoined:
		if c.callbacks.OnUserJoined != nil {
			c.callbacks.OnUserJoined(models.CollaborationUser{UserID: msg.UserID, Username: msg.Username}, msg.Users)
		}
	case collab.MessageUserLeft:
		if c.callbacks.OnUserLeft != nil {
			c.callbacks.OnUserLeft(models.CollaborationUser{UserID: msg.UserID, Username: msg.Username}, msg.Users)
		}
	case collab.MessageNodeUpdated:
		if msg.UserID != c.userID && msg.Node != nil && c.callbacks.OnNodeUpdated != nil {
			c.callbacks.OnNodeUpdated(msg.UserID, *msg.Node)
		}
	case collab.MessageEdgeUpdated:
		if msg.UserID != c.userID && msg.Edge != nil && c.callbacks.OnEdgeUpdated != nil {
			c.callbacks.OnEdgeUpdated(msg.UserID, *msg.Edge)
		}
	case collab.MessageNodeDeleted:
		if msg.UserID != c.userID && c.callbacks.OnNodeDeleted != nil {
			c.callbacks.OnNodeDeleted(msg.UserID, msg.NodeID)
		}
	case collab.MessageEdgeDeleted:
		if msg.UserID != c.userID && c.callbacks.OnEdgeDeleted != nil {
			c.callbacks.OnEdgeDeleted(msg.UserID, msg.EdgeID)
		}
	case collab.MessageCursorMoved:
		if msg.UserID != c.userID && c.callbacks.OnCursorMoved != nil {
			c.callbacks.OnCursorMoved(models.Cursor{
				UserID:   msg.UserID,
				Username: msg.Username,
				X:        msg.X,
				Y:        msg.Y,
			})
		}
	case collab.MessageHeartbeatAck:
		// Nothing to do.
	case collab.MessageError:
		c.logger.Warn("session error from hub", "text", msg.Text)

		if c.callbacks.OnError != nil {
			c.callbacks.OnError(errors.New(msg.Text))
		}
	default:
		c.logger.Debug("ignoring message", "type", msg.Type)
	}
}

func (c *Client) send(msg *collab.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected || c.conn == nil {
		return
	}

	frame, err := msg.Encode()
	if err != nil {
		c.logger.Error("failed to encode message", "type", msg.Type, "error", err)

		return
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn("failed to send message", "type", msg.Type, "error", err)
	}
}

// connectionLost transitions to the error state and drives the reconnect
// loop. An intentional disconnect never reconnects.
func (c *Client) connectionLost() {
	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()

		return
	}

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	c.generation++
	c.setStateLocked(StateError)
	c.mu.Unlock()

	c.logger.Warn("collaboration connection lost, reconnecting", "entity", c.entity)

	go c.reconnect()
}

func (c *Client) reconnect() {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	policy.MaxInterval = reconnectMaxInterval
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	operation := func() error {
		c.mu.Lock()
		if c.intentional {
			c.mu.Unlock()

			return backoff.Permanent(errors.New("disconnected"))
		}
		c.mu.Unlock()

		conn, err := c.dial(context.Background())
		if err != nil {
			return err
		}

		c.attach(conn)

		return nil
	}

	// WithMaxRetries counts retries after the first attempt.
	err := backoff.Retry(operation, backoff.WithMaxRetries(policy, reconnectMaxAttempts-1))
	if err == nil {
		return
	}

	c.mu.Lock()
	intentional := c.intentional
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if intentional {
		return
	}

	c.logger.Error("giving up on collaboration session", "entity", c.entity, "error", err)

	if c.callbacks.OnError != nil {
		c.callbacks.OnError(fmt.Errorf("%w: %w", ErrReconnectFailed, err))
	}
}

// setStateLocked updates the state and fires OnConnectionChange. Callers
// hold c.mu.
func (c *Client) setStateLocked(state State) {
	if c.state == state {
		return
	}

	c.state = state

	if c.callbacks.OnConnectionChange != nil {
		go c.callbacks.OnConnectionChange(state)
	}
}
