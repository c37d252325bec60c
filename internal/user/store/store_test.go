package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledger/internal/database/dbtest"
	"github.com/MrJamesThe3rd/ledger/internal/user"
	"github.com/MrJamesThe3rd/ledger/internal/user/store"
)

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := store.New(dbtest.New(t))

	u := &user.User{
		ID:        uuid.New(),
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	created, err := s.CreateUser(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *u
	dup.ID = uuid.New()
	created, err = s.CreateUser(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, user.ErrNotFound)
}
