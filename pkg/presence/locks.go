// Package presence tracks advisory per-field locks on entities. The lock
// table only reflects claims: it is consulted before a local edit is allowed,
// but the backend stays authoritative and absence of a record proves nothing.
package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/okanero/flowstudio/pkg/models"
)

// ErrFieldLocked indicates the field is claimed by another user.
var ErrFieldLocked = errors.New("field is locked by another user")

// ErrNotHolder indicates a release attempt by a user that does not hold the
// lock.
var ErrNotHolder = errors.New("lock is not held by this user")

// LockTable is the advisory field-lock store.
type LockTable interface {
	// Acquire claims a field. Re-acquiring an own lock is a no-op; a claim
	// held by someone else fails with ErrFieldLocked.
	Acquire(ctx context.Context, lock models.FieldLock) error

	// Release drops an own claim. Releasing an unheld field is a no-op;
	// releasing someone else's claim fails with ErrNotHolder.
	Release(ctx context.Context, entityID, field, holderID string) error

	// Holder returns the current holder's user id, or "" when unclaimed.
	Holder(ctx context.Context, entityID, field string) (string, error)
}

func lockKey(entityID, field string) string {
	return fmt.Sprintf("%s/%s", entityID, field)
}
