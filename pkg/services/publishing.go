package services

import (
	"context"
	"fmt"
	"time"

	"github.com/okanero/flowstudio/pkg/eventbus"
	"github.com/okanero/flowstudio/pkg/events"
	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence"
)

// Publishing promotes a validated draft to the active workflow version and
// notifies running consumers.
type Publishing struct {
	persistence persistence.Persistence
	validation  *Validation
	bus         eventbus.EventBus
}

// NewPublishing creates a new publishing service. The bus may be nil; the
// publish then happens without notifications.
func NewPublishing(persistence persistence.Persistence, validation *Validation, bus eventbus.EventBus) *Publishing {
	return &Publishing{
		persistence: persistence,
		validation:  validation,
		bus:         bus,
	}
}

// PublishResult reports a completed publish.
type PublishResult struct {
	Draft    *models.Draft `json:"draft"`
	Warnings []Issue       `json:"warnings,omitempty"`
}

// Publish validates the entity's draft and marks it as the active version.
// Validation errors block the publish; warnings are reported but do not.
// Re-publishing an unchanged draft fails with ErrNothingToPublish.
func (p *Publishing) Publish(ctx context.Context, entityType, publishedBy string) (*PublishResult, error) {
	if entityType == "" {
		return nil, ErrEntityTypeRequired
	}

	draft, err := p.persistence.Drafts().Get(ctx, entityType)
	if err != nil {
		return nil, err
	}

	if draft.Published {
		return nil, fmt.Errorf("%w: version %d is already published", ErrNothingToPublish, draft.Version)
	}

	report, err := p.validation.Validate(draft)
	if err != nil {
		return nil, err
	}

	if !report.Valid() {
		return nil, fmt.Errorf("%w: %d validation errors", ErrDraftInvalid, len(report.Errors))
	}

	draft.Version++
	draft.Published = true
	draft.UpdatedBy = publishedBy

	if err := p.persistence.Drafts().Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to publish draft %s: %w", entityType, err)
	}

	p.notify(ctx, draft, publishedBy)

	return &PublishResult{Draft: draft, Warnings: report.Warnings}, nil
}

// notify announces the new version and asks consumers to hot-reload it.
func (p *Publishing) notify(ctx context.Context, draft *models.Draft, publishedBy string) {
	if p.bus == nil {
		return
	}

	now := time.Now().UTC()

	published := &events.WorkflowPublished{
		BaseEvent: events.BaseEvent{
			ID:         p.bus.GenerateID(),
			Type:       events.WorkflowPublishedEvent,
			Timestamp:  now,
			EntityType: draft.EntityType,
		},
		Version:     draft.Version,
		PublishedBy: publishedBy,
	}

	reload := &events.HotReloadRequested{
		BaseEvent: events.BaseEvent{
			ID:         p.bus.GenerateID(),
			Type:       events.HotReloadRequestedEvent,
			Timestamp:  now,
			EntityType: draft.EntityType,
		},
		Version: draft.Version,
	}

	// Notification failures never undo a completed publish.
	_ = p.bus.Publish(ctx, draft.EntityType, published)
	_ = p.bus.Publish(ctx, draft.EntityType, reload)
}
