package models

// CollaborationUser identifies a participant of an editing session.
type CollaborationUser struct {
	UserID   string `json:"user_id"  validate:"required"`
	Username string `json:"username" validate:"required"`
}

// Cursor is the last known canvas position of a participant's pointer.
// Ephemeral, last-write-wins per user, cleared when the owner leaves.
type Cursor struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// FieldLock records an advisory claim on a single entity field. The server
// is the source of truth; the client only reflects the lock and checks it
// before allowing a local edit.
type FieldLock struct {
	EntityID string `json:"entity_id" validate:"required"`
	Field    string `json:"field"     validate:"required"`
	HolderID string `json:"holder_id" validate:"required"`
}
