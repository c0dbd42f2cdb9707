// Package service orchestrates credential operations around the validation
// pipeline: it owns persistence, identifier reservations, audit emission, and
// metrics, keeping the pipeline itself free of I/O.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"credgate/internal/identity/credential"
	"credgate/internal/identity/models"
	"credgate/internal/identity/password"
	"credgate/internal/platform/metrics"
	"credgate/pkg/changeset"
	dErrors "credgate/pkg/domain-errors"
	"credgate/pkg/platform/audit"
	"credgate/pkg/platform/sentinel"
	"credgate/pkg/requestcontext"
)

// UserStore persists identity records. Conflicts on the unique login
// identifier surface as sentinel.ErrAlreadyUsed.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Reservations claims a normalized identifier ahead of the insert, narrowing
// the race window between concurrent registrations. The store's unique index
// stays the final authority.
type Reservations interface {
	Claim(ctx context.Context, identifier string) error
	Release(ctx context.Context, identifier string) error
}

// AuditPublisher emits audit events for key credential actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service exposes credential operations over a user store.
type Service struct {
	users          UserStore
	cfg            credential.Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	reservations   Reservations
	tracer         trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditPublisher enables audit event emission.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithMetrics enables Prometheus instrumentation, including hashing latency
// observation around the configured hash function.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithReservations enables identifier reservations for registrations.
func WithReservations(r Reservations) Option {
	return func(s *Service) {
		s.reservations = r
	}
}

// WithTracer enables OpenTelemetry spans around operations.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service validating with the given pipeline config.
func New(users UserStore, cfg credential.Config, opts ...Option) *Service {
	s := &Service{users: users, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.cfg.Hasher = instrumentedHasher(s.cfg.Hasher, s.metrics)
	}
	return s
}

// instrumentedHasher wraps the hash function with latency observation. The
// verify side is left untouched so the pair's semantics are unchanged.
func instrumentedHasher(h password.Hasher, m *metrics.Metrics) password.Hasher {
	if h.Hash == nil || h.Verify == nil {
		h = password.Default()
	}
	inner := h.Hash
	h.Hash = func(pw string) string {
		start := time.Now()
		out := inner(pw)
		m.ObserveHashDuration(float64(time.Since(start).Microseconds()) / 1000.0)
		return out
	}
	return h
}

// Register validates the params as a new identity record and persists it.
// Validation failures return a dErrors.CodeInvalidInput error wrapping the
// changeset's *InvalidError so transports can render every field error.
func (s *Service) Register(ctx context.Context, params map[string]any) (*models.User, error) {
	ctx, end := s.span(ctx, "identity.Register")
	defer end()

	user := &models.User{ID: uuid.New()}
	cs := credential.Begin(user)
	credential.ValidateUserID(cs, params, s.cfg)
	credential.ValidatePassword(cs, params, s.cfg)
	s.logDeprecations(ctx, cs)

	changes, err := cs.Apply()
	if err != nil {
		return nil, s.rejected(ctx, err)
	}

	email, _ := changes["email"].(string)
	if s.reservations != nil {
		if err := s.reservations.Claim(ctx, email); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				cs.ConstraintError("unique")
				_, invalid := cs.Apply()
				return nil, s.rejected(ctx, invalid)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reserve identifier")
		}
		defer func() {
			_ = s.reservations.Release(ctx, email)
		}()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.ApplyChanges(changes)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			cs.ConstraintError("unique")
			_, invalid := cs.Apply()
			return nil, s.rejected(ctx, invalid)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		UserID:   user.ID,
		Email:    user.Email,
		Action:   audit.ActionUserCreated,
	})
	return user, nil
}

// UpdateCredentials re-validates and applies credential changes on an
// existing record. The stored password hash makes current-password
// verification mandatory; identifier changes additionally go through format
// and uniqueness validation.
func (s *Service) UpdateCredentials(ctx context.Context, id uuid.UUID, params map[string]any) (*models.User, error) {
	ctx, end := s.span(ctx, "identity.UpdateCredentials")
	defer end()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}

	cs := credential.Begin(user)
	if _, ok := params[s.idField()]; ok {
		credential.ValidateUserID(cs, params, s.cfg)
	}
	credential.ValidatePassword(cs, params, s.cfg)
	s.logDeprecations(ctx, cs)

	changes, err := cs.Apply()
	if err != nil {
		return nil, s.rejected(ctx, err)
	}

	previousEmail := user.Email
	previousHash := user.PasswordHash
	user.ApplyChanges(changes)
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			cs.ConstraintError("unique")
			_, invalid := cs.Apply()
			return nil, s.rejected(ctx, invalid)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update user")
	}

	if user.Email != previousEmail {
		s.emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			UserID:   user.ID,
			Email:    user.Email,
			Action:   audit.ActionUserIDChanged,
		})
	}
	if user.PasswordHash != previousHash {
		s.emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			UserID:   user.ID,
			Email:    user.Email,
			Action:   audit.ActionPasswordChanged,
		})
	}
	return user, nil
}

// Authenticate verifies a login attempt. Unknown identifiers and wrong
// passwords are indistinguishable to the caller: both cost one hash
// invocation and return the same unauthorized error.
func (s *Service) Authenticate(ctx context.Context, email, candidate string) (*models.User, error) {
	ctx, end := s.span(ctx, "identity.Authenticate")
	defer end()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			credential.VerifyPassword(&models.User{}, candidate, s.cfg)
			s.emit(ctx, audit.Event{
				Category: audit.CategorySecurity,
				Email:    email,
				Action:   audit.ActionAuthFailed,
				Reason:   "unknown identifier",
			})
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}

	if !credential.VerifyPassword(user, candidate, s.cfg) {
		s.emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			UserID:   user.ID,
			Email:    user.Email,
			Action:   audit.ActionAuthFailed,
			Reason:   "verification failed",
		})
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		UserID:   user.ID,
		Email:    user.Email,
		Action:   audit.ActionAuthSucceeded,
	})
	return user, nil
}

func (s *Service) idField() string {
	if s.cfg.IDField != "" {
		return s.cfg.IDField
	}
	return "email"
}

// rejected converts a failed Apply into the transport-facing error, counting
// each rejected field and emitting one validation_rejected audit event.
func (s *Service) rejected(ctx context.Context, err error) error {
	var invalid *changeset.InvalidError
	if !errors.As(err, &invalid) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "apply changes")
	}

	if s.metrics != nil {
		for _, e := range invalid.Errors {
			s.metrics.RecordValidationFailure(e.Field)
		}
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionValidationRejected,
		Reason:   invalid.Error(),
	})
	return dErrors.Wrap(invalid, dErrors.CodeInvalidInput, "validation failed")
}

func (s *Service) logDeprecations(ctx context.Context, cs *changeset.Changeset) {
	if s.logger == nil {
		return
	}
	for _, d := range cs.Deprecations() {
		s.logger.WarnContext(ctx, "deprecated param",
			"param", d.Param,
			"replace_with", d.ReplaceWith,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) span(ctx context.Context, name string) (context.Context, func()) {
	if s.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := s.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}
