package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=user
type Repository interface {
	CreateUser(ctx context.Context, u *User) (bool, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) Create(ctx context.Context, username, email string) (*User, error) {
	u := &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		CreatedAt: s.now(),
	}

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}

	if !created {
		return nil, ErrUsernameTaken.Withf("Username %q already exists", username)
	}

	return u, nil
}

// SeedDemo makes sure the named users exist, creating the missing ones.
func (s *Service) SeedDemo(ctx context.Context, usernames []string) ([]*User, error) {
	users := make([]*User, 0, len(usernames))

	for _, name := range usernames {
		u, err := s.repo.GetUserByUsername(ctx, name)
		if err == nil {
			users = append(users, u)
			continue
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("looking up user %s: %w", name, err)
		}

		u, err = s.Create(ctx, name, name+"@example.com")
		if err != nil {
			return nil, fmt.Errorf("seeding user %s: %w", name, err)
		}

		slog.Info("seeded demo user", "username", u.Username, "id", u.ID)

		users = append(users, u)
	}

	return users, nil
}
