package presence

import (
	"context"
	"fmt"
	"sync"

	"github.com/okanero/flowstudio/pkg/models"
)

// MemoryLockTable is the in-process lock table used by tests and
// single-instance deployments.
type MemoryLockTable struct {
	mu    sync.RWMutex
	locks map[string]string // entity/field -> holder user id
}

// NewMemoryLockTable creates an empty in-memory lock table.
func NewMemoryLockTable() *MemoryLockTable {
	return &MemoryLockTable{locks: make(map[string]string)}
}

func (t *MemoryLockTable) Acquire(_ context.Context, lock models.FieldLock) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := lockKey(lock.EntityID, lock.Field)

	if holder, ok := t.locks[key]; ok && holder != lock.HolderID {
		return fmt.Errorf("%w: held by %s", ErrFieldLocked, holder)
	}

	t.locks[key] = lock.HolderID

	return nil
}

func (t *MemoryLockTable) Release(_ context.Context, entityID, field, holderID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := lockKey(entityID, field)

	holder, ok := t.locks[key]
	if !ok {
		return nil
	}

	if holder != holderID {
		return fmt.Errorf("%w: held by %s", ErrNotHolder, holder)
	}

	delete(t.locks, key)

	return nil
}

func (t *MemoryLockTable) Holder(_ context.Context, entityID, field string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.locks[lockKey(entityID, field)], nil
}
