package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/okanero/flowstudio/pkg/eventbus"
	"github.com/okanero/flowstudio/pkg/events"
	"github.com/okanero/flowstudio/pkg/persistence"
	"github.com/okanero/flowstudio/pkg/persistence/file"
)

func newTestPersistence(t *testing.T) persistence.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }

func (b *recordingBus) Subscribe(context.Context) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) GenerateID() string { return uuid.NewString() }

func (b *recordingBus) published() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]eventbus.Event(nil), b.events...)
}
