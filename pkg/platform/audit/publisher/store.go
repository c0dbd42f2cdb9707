package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"credgate/pkg/platform/audit"
)

// StorePublisher writes events to a store synchronously. Callers that need a
// fail-closed audit trail use this directly; callers that tolerate loss wrap
// a store in the buffered worker instead.
type StorePublisher struct {
	store  audit.Store
	logger *slog.Logger
}

// StoreOption configures a StorePublisher.
type StoreOption func(*StorePublisher)

// WithStoreLogger sets a logger for append failures.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(p *StorePublisher) {
		p.logger = logger
	}
}

// NewStore creates a synchronous publisher over the given store.
func NewStore(store audit.Store, opts ...StoreOption) *StorePublisher {
	p := &StorePublisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends one event, stamping the timestamp when the caller left it zero.
func (p *StorePublisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event missing action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action,
				"error", err,
			)
		}
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
