//go:build integration

package user_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credgate/internal/identity/models"
	"credgate/internal/identity/store/user"
	"credgate/pkg/platform/sentinel"
	"credgate/pkg/testutil/containers"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email));
`

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresUserStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(usersSchema)
	s.Require().NoError(err)
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func newTestUser(email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$argon2id$stub",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresUserStoreSuite) TestCreateAndLookups() {
	ctx := context.Background()
	u := newTestUser("jane.doe@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, byID.Email)

	byEmail, err := s.store.FindByEmail(ctx, "JANE.DOE@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	_, err = s.store.FindByEmail(ctx, "missing@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestUniqueViolationTranslation() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestUser("dup@example.com")))

	err := s.store.Create(ctx, newTestUser("DUP@example.com"))
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresUserStoreSuite) TestConcurrentCreateSingleWinner() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var created, conflicted atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestUser("race@example.com"))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load(), "exactly one create must win")
	s.Equal(int32(goroutines-1), conflicted.Load())
}

func (s *PostgresUserStoreSuite) TestUpdate() {
	ctx := context.Background()
	u := newTestUser("before@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	u.Email = "after@example.com"
	u.PasswordHash = "$argon2id$rotated"
	u.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.store.Update(ctx, u))

	found, err := s.store.FindByEmail(ctx, "after@example.com")
	s.Require().NoError(err)
	s.Equal("$argon2id$rotated", found.PasswordHash)

	s.Require().ErrorIs(s.store.Update(ctx, newTestUser("ghost@example.com")), sentinel.ErrNotFound)

	other := newTestUser("taken@example.com")
	s.Require().NoError(s.store.Create(ctx, other))
	other.Email = "AFTER@example.com"
	s.Require().ErrorIs(s.store.Update(ctx, other), sentinel.ErrAlreadyUsed)
}
