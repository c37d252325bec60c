package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/database"
	"github.com/MrJamesThe3rd/ledger/internal/user"
)

type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// CreateUser reports false when the username is already taken.
func (s *Store) CreateUser(ctx context.Context, u *user.User) (bool, error) {
	query := `
		INSERT INTO users (id, username, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID

	err := s.db.Querier(ctx).QueryRowContext(ctx, query, u.ID, u.Username, u.Email, u.CreatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("creating user: %w", err)
	}

	return true, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.getOne(ctx, `SELECT id, username, email, created_at FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getOne(ctx, `SELECT id, username, email, created_at FROM users WHERE username = $1`, username)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	var u user.User

	err := s.db.Querier(ctx).QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	return &u, nil
}
