// Package user provides persistence collaborators for identity records. The
// credential pipeline only declares the uniqueness constraint on the login
// identifier; enforcement happens here, and conflicts surface as
// sentinel.ErrAlreadyUsed for the service layer to translate back into a
// changeset error.
package user

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"credgate/internal/identity/models"
	"credgate/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in process memory. Suitable for tests and
// single-node development; production deployments use PostgresUserStore.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID // key is the lower-cased email
}

// New creates an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create inserts a new user, enforcing case-insensitive email uniqueness.
func (s *InMemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.byID[u.ID]; exists {
		return sentinel.ErrConflict
	}

	s.byID[u.ID] = *u
	s.byEmail[key] = u.ID
	return nil
}

// Update overwrites an existing user, keeping the email index consistent.
func (s *InMemoryUserStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.byID[u.ID]
	if !exists {
		return sentinel.ErrNotFound
	}

	oldKey := strings.ToLower(current.Email)
	newKey := strings.ToLower(u.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = u.ID
	}

	s.byID[u.ID] = *u
	return nil
}

// FindByID returns the user with the given ID.
func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

// FindByEmail returns the user with the given email, matched
// case-insensitively.
func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}
