// Package audit captures key credential actions as events. Events are
// transport-agnostic so stores and sinks can fan out: an in-memory store for
// tests and single-node use, and a Kafka publisher for deployments that
// stream their security feed.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance, such
	// as account creation.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// credential changes, failed verifications.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for operational visibility
	// and may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Credential actions emitted by the identity service.
const (
	ActionUserCreated        = "user_created"
	ActionUserIDChanged      = "user_id_changed"
	ActionPasswordChanged    = "password_changed"
	ActionAuthSucceeded      = "auth_succeeded"
	ActionAuthFailed         = "auth_failed"
	ActionValidationRejected = "validation_rejected"
)

// Event is emitted from domain logic to capture one key action.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    uuid.UUID     `json:"user_id,omitempty"`
	Email     string        `json:"email,omitempty"`
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	// RequestID correlates the event with an HTTP request, when one exists.
	RequestID string `json:"request_id,omitempty"`
	// UserAgent is the parsed client identity captured at the transport
	// boundary, useful for security forensics.
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher emits audit events from domain logic. Implementations decide
// whether emission is synchronous (fail-closed) or buffered.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
