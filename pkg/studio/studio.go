// Package studio assembles the client-side editing plane from one
// configuration: capability loading, the entity data layer, and live
// collaborative editing sessions.
package studio

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/okanero/flowstudio/pkg/capability"
	"github.com/okanero/flowstudio/pkg/collab/client"
	"github.com/okanero/flowstudio/pkg/collab/session"
	"github.com/okanero/flowstudio/pkg/config"
	"github.com/okanero/flowstudio/pkg/editor"
	"github.com/okanero/flowstudio/pkg/entityview"
	"github.com/okanero/flowstudio/pkg/presence"
)

// Workbench is one user's handle on the editing plane.
type Workbench struct {
	config     config.StudioConfig
	logger     *slog.Logger
	httpClient *http.Client
	caps       *capability.Loader
	entities   *entityview.Client
}

// Option configures a Workbench.
type Option func(*workbenchDeps)

type workbenchDeps struct {
	logger          *slog.Logger
	httpClient      *http.Client
	capabilityCache capability.Cache
	locks           presence.LockTable
	onConflict      entityview.ConflictHandler
}

// WithLogger overrides the workbench logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *workbenchDeps) { d.logger = logger }
}

// WithHTTPClient overrides the HTTP client used for capabilities and
// entity access.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *workbenchDeps) { d.httpClient = httpClient }
}

// WithCapabilityCache injects the capability cache.
func WithCapabilityCache(cache capability.Cache) Option {
	return func(d *workbenchDeps) { d.capabilityCache = cache }
}

// WithLockTable wires the advisory field-lock table for entity patches.
func WithLockTable(locks presence.LockTable) Option {
	return func(d *workbenchDeps) { d.locks = locks }
}

// WithConflictHandler registers the entity conflict callback.
func WithConflictHandler(handler entityview.ConflictHandler) Option {
	return func(d *workbenchDeps) { d.onConflict = handler }
}

// New builds a workbench from studio configuration.
func New(cfg config.StudioConfig, opts ...Option) *Workbench {
	deps := &workbenchDeps{
		logger:     slog.With("module", "studio"),
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(deps)
	}

	entityOpts := []entityview.Option{
		entityview.WithHTTPClient(deps.httpClient),
		entityview.WithLogger(deps.logger),
	}

	if deps.locks != nil {
		entityOpts = append(entityOpts, entityview.WithLockTable(deps.locks))
	}

	if deps.onConflict != nil {
		entityOpts = append(entityOpts, entityview.WithConflictHandler(deps.onConflict))
	}

	return &Workbench{
		config:     cfg,
		logger:     deps.logger,
		httpClient: deps.httpClient,
		caps:       capability.NewLoader(cfg.CapabilitiesURL, deps.httpClient, deps.capabilityCache),
		entities:   entityview.NewClient(cfg.APIBaseURL, entityOpts...),
	}
}

// Capabilities returns the session's capability set, revalidated against the
// server via its ETag.
func (w *Workbench) Capabilities(ctx context.Context) (*capability.Set, error) {
	return w.caps.Load(ctx)
}

// InvalidateCapabilities drops the cached capability set.
func (w *Workbench) InvalidateCapabilities() {
	w.caps.Invalidate()
}

// Entities returns the entity data layer.
func (w *Workbench) Entities() *entityview.Client {
	return w.entities
}

// OpenDocument creates a local editor document for the entity type, with the
// configured undo history capacity.
func (w *Workbench) OpenDocument(entityType string) *editor.Document {
	return editor.NewDocument(entityType, editor.WithHistoryLimit(w.config.HistoryLimit))
}

// OpenSession opens a collaborative session over the document. The session is
// offline until Join is called on it.
func (w *Workbench) OpenSession(doc session.Document, entityType, userID, username string, onChange func()) *session.Session {
	var clientOpts []client.Option
	if w.config.HeartbeatInterval > 0 {
		clientOpts = append(clientOpts, client.WithHeartbeatInterval(w.config.HeartbeatInterval))
	}

	return session.New(doc, session.Config{
		URL:           w.config.CollabURL,
		Entity:        entityType,
		UserID:        userID,
		Username:      username,
		Logger:        w.logger,
		OnChange:      onChange,
		ClientOptions: clientOpts,
	})
}
