package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"credgate/internal/identity/models"
	"credgate/pkg/platform/sentinel"
)

// PostgresUserStore persists users in PostgreSQL.
//
// Expected schema: a users table with a unique index on lower(email), so the
// database is the final authority on the case-insensitive uniqueness the
// pipeline declares. SQLSTATE 23505 (unique_violation) is translated into
// sentinel.ErrAlreadyUsed.
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Create inserts a new user.
func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update overwrites the persistent fields of an existing user.
func (s *PostgresUserStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByID returns the user with the given ID.
func (s *PostgresUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

// FindByEmail returns the user with the given email, matched
// case-insensitively against the stored (normalized) value.
func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`, email))
}

func (s *PostgresUserStore) scanOne(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
