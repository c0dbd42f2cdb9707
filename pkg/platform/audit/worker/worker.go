// Package worker consumes buffered audit events and persists them, keeping
// emission off the request path for deployments that choose async auditing.
package worker

import (
	"context"
	"log/slog"

	"credgate/pkg/platform/audit"
)

// Worker consumes audit events from a channel and appends them to a store.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets a logger for append failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// New creates a worker draining inbox into store.
func New(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the inbox until ctx is cancelled. Append failures are logged
// and do not stop the worker; audit streaming is best-effort here, the
// fail-closed path is the synchronous publisher.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}

// Buffered wires a worker with its inbox channel and returns a Publisher
// that drops events when the buffer is full rather than blocking the
// request path.
func Buffered(store audit.Store, size int, opts ...Option) (audit.Publisher, *Worker) {
	inbox := make(chan audit.Event, size)
	return chanPublisher(inbox), New(store, inbox, opts...)
}

type chanPublisher chan<- audit.Event

func (p chanPublisher) Emit(_ context.Context, event audit.Event) error {
	select {
	case p <- event:
	default:
		// Buffer full: drop rather than block credential operations.
	}
	return nil
}
