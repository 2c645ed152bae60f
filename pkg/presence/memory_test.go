package presence

import (
	"testing"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockTable_AcquireRelease(t *testing.T) {
	table := NewMemoryLockTable()

	err := table.Acquire(t.Context(), models.FieldLock{
		EntityID: "order-1",
		Field:    "totalAmount",
		HolderID: "alice",
	})
	require.NoError(t, err)

	holder, err := table.Holder(t.Context(), "order-1", "totalAmount")
	require.NoError(t, err)
	assert.Equal(t, "alice", holder)

	require.NoError(t, table.Release(t.Context(), "order-1", "totalAmount", "alice"))

	holder, err = table.Holder(t.Context(), "order-1", "totalAmount")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestMemoryLockTable_ConflictingAcquire(t *testing.T) {
	table := NewMemoryLockTable()

	require.NoError(t, table.Acquire(t.Context(), models.FieldLock{
		EntityID: "order-1",
		Field:    "status",
		HolderID: "alice",
	}))

	err := table.Acquire(t.Context(), models.FieldLock{
		EntityID: "order-1",
		Field:    "status",
		HolderID: "bob",
	})
	require.ErrorIs(t, err, ErrFieldLocked)
	assert.Contains(t, err.Error(), "alice")

	// Same field on a different entity is free.
	assert.NoError(t, table.Acquire(t.Context(), models.FieldLock{
		EntityID: "order-2",
		Field:    "status",
		HolderID: "bob",
	}))
}

func TestMemoryLockTable_ReacquireOwnLock(t *testing.T) {
	table := NewMemoryLockTable()

	lock := models.FieldLock{EntityID: "e", Field: "f", HolderID: "alice"}
	require.NoError(t, table.Acquire(t.Context(), lock))
	assert.NoError(t, table.Acquire(t.Context(), lock))
}

func TestMemoryLockTable_ReleaseGuards(t *testing.T) {
	table := NewMemoryLockTable()

	// Releasing an unheld field is a no-op.
	assert.NoError(t, table.Release(t.Context(), "e", "f", "alice"))

	require.NoError(t, table.Acquire(t.Context(), models.FieldLock{EntityID: "e", Field: "f", HolderID: "alice"}))

	err := table.Release(t.Context(), "e", "f", "bob")
	assert.ErrorIs(t, err, ErrNotHolder)

	holder, _ := table.Holder(t.Context(), "e", "f")
	assert.Equal(t, "alice", holder)
}
