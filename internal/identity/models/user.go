// Package models defines the identity records the credential pipeline
// validates. Storage lives behind the store interfaces; transport shapes
// live in the HTTP layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the primary identity record.
//
// PasswordHash is either empty (no password set yet) or an opaque encoded
// hash produced only by the configured hash function. CurrentPassword is
// transient input state: it is never persisted and is reset before every
// validation round.
type User struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    string
	CurrentPassword string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Fields snapshots the validatable fields for a changeset base.
func (u *User) Fields() map[string]any {
	return map[string]any{
		"email":            u.Email,
		"password_hash":    u.PasswordHash,
		"current_password": u.CurrentPassword,
	}
}

// ApplyChanges merges an applied change set back into the record. Only
// persistent fields are recognized; transient fields have already been
// stripped by the changeset finalizers and are ignored here as a backstop.
func (u *User) ApplyChanges(changes map[string]any) {
	if v, ok := changes["email"].(string); ok {
		u.Email = v
	}
	if v, ok := changes["password_hash"].(string); ok {
		u.PasswordHash = v
	}
}
