// Package entityview is the client-side data layer for single-entity CRUD
// with optimistic concurrency. Every fetch carries an opaque ETag; mutations
// send it back as an If-Match precondition. A precondition failure is a
// conflict, never something to retry silently: the caller gets a conflict
// callback whose reload action fails fast, forcing an explicit refetch
// through the normal path.
package entityview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/okanero/flowstudio/pkg/presence"
)

var (
	// ErrConflict indicates the entity changed since it was fetched.
	ErrConflict = errors.New("entity version conflict")

	// ErrReloadRequired is what a conflict's Reload action always returns:
	// resolving a conflict means refetching, never silent overwrite.
	ErrReloadRequired = errors.New("reload required: refetch the entity before retrying")

	// ErrNotFound indicates the entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrValidation indicates the server rejected the payload.
	ErrValidation = errors.New("validation failed")
)

// View is one fetched entity snapshot with its version token.
type View struct {
	Data map[string]any
	ETag string
}

// Conflict is passed to the conflict handler on a failed precondition.
type Conflict struct {
	Err     error
	Message string

	// Reload always fails fast with ErrReloadRequired. It exists so call
	// sites are forced to route resynchronization through Fetch instead of
	// having the conflict resolved for them.
	Reload func() error
}

// ConflictHandler receives optimistic-concurrency conflicts.
type ConflictHandler func(Conflict)

// Client talks to the entity resource of the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	locks      presence.LockTable
	onConflict ConflictHandler
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLockTable wires the advisory field-lock table consulted by Patch.
func WithLockTable(locks presence.LockTable) Option {
	return func(c *Client) { c.locks = locks }
}

// WithConflictHandler registers the conflict callback.
func WithConflictHandler(handler ConflictHandler) Option {
	return func(c *Client) { c.onConflict = handler }
}

// WithLogger overrides the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates an entity client for the given API base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     slog.With("module", "entityview"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) entityURL(entityType, entityID string) string {
	return fmt.Sprintf("%s/entities/%s/%s", c.baseURL, entityType, entityID)
}

// Fetch retrieves an entity snapshot. The returned ETag supersedes any
// previously held token for this entity.
func (c *Client) Fetch(ctx context.Context, entityType, entityID string) (*View, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entityURL(entityType, entityID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", entityType, entityID, err)
	}
	defer resp.Body.Close()

	return c.decodeView(resp, entityType, entityID)
}

// Update replaces the entity, guarded by the etag from the last fetch.
// A stale etag invokes the conflict handler and returns ErrConflict.
func (c *Client) Update(ctx context.Context, entityType, entityID string, data map[string]any, etag string) (*View, error) {
	return c.mutate(ctx, http.MethodPut, entityType, entityID, data, etag)
}

// Patch updates a single field, guarded by the etag and by the advisory
// field-lock table: a lock held by another user rejects the edit locally,
// before any network call. The advisory check proves nothing when it
// passes; the server remains authoritative.
func (c *Client) Patch(ctx context.Context, entityType, entityID, field string, value any, etag, userID string) (*View, error) {
	if c.locks != nil {
		holder, err := c.locks.Holder(ctx, entityID, field)
		if err != nil {
			return nil, fmt.Errorf("failed to check field lock: %w", err)
		}

		if holder != "" && holder != userID {
			return nil, fmt.Errorf("%w: %s is being edited by %s", presence.ErrFieldLocked, field, holder)
		}
	}

	return c.mutate(ctx, http.MethodPatch, entityType, entityID, map[string]any{field: value}, etag)
}

func (c *Client) mutate(ctx context.Context, method, entityType, entityID string, payload map[string]any, etag string) (*View, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.entityURL(entityType, entityID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s/%s: %w", method, entityType, entityID, err)
	}
	defer resp.Body.Close()

	// Both conflict codes the backend emits are treated identically.
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed {
		return nil, c.reportConflict(resp, entityType, entityID)
	}

	return c.decodeView(resp, entityType, entityID)
}

func (c *Client) reportConflict(resp *http.Response, entityType, entityID string) error {
	message := problemDetail(resp.Body)
	if message == "" {
		message = fmt.Sprintf("%s %s was modified by someone else; reload to continue", entityType, entityID)
	}

	err := fmt.Errorf("%w: %s/%s", ErrConflict, entityType, entityID)

	c.logger.Warn("entity mutation conflicted",
		"entity_type", entityType, "entity_id", entityID, "status", resp.StatusCode)

	if c.onConflict != nil {
		c.onConflict(Conflict{
			Err:     err,
			Message: message,
			Reload:  func() error { return ErrReloadRequired },
		})
	}

	return err
}

func (c *Client) decodeView(resp *http.Response, entityType, entityID string) (*View, error) {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, entityType, entityID)
	case resp.StatusCode == http.StatusBadRequest:
		if detail := problemDetail(resp.Body); detail != "" {
			return nil, fmt.Errorf("%w: %s", ErrValidation, detail)
		}

		return nil, fmt.Errorf("%w: %s/%s", ErrValidation, entityType, entityID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d for %s/%s", resp.StatusCode, entityType, entityID)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", entityType, entityID, err)
	}

	return &View{Data: data, ETag: resp.Header.Get("ETag")}, nil
}

// problemDetail extracts the detail of an RFC-7807 problem body, if any.
func problemDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return ""
	}

	var problem struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}

	if err := json.Unmarshal(raw, &problem); err != nil {
		return ""
	}

	if problem.Detail != "" {
		return problem.Detail
	}

	return problem.Title
}
