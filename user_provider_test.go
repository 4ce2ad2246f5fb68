package board_test

import (
	"context"
	"testing"

	"github.com/clubgate/board"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	hash, err := board.HashPassword("secret123")
	require.NoError(t, err)

	userID := uuid.New()
	record := &board.User{
		ID:           userID,
		Username:     "bob",
		PasswordHash: hash,
	}

	t.Run("Successful verification", func(t *testing.T) {
		store := new(MockUserLookup)
		store.On("GetByUsername", ctx, "bob").Return(record, nil).Once()

		provider := board.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "bob", "secret123")

		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())
		assert.Equal(t, "bob", identity.Username())
		assert.False(t, identity.IsVerified())
		store.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		store := new(MockUserLookup)
		store.On("GetByUsername", ctx, "bob").Return(record, nil).Once()

		provider := board.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "bob", "wrong")

		assert.ErrorIs(t, err, board.ErrMismatchedHashAndPassword)
		assert.Nil(t, identity)
	})

	t.Run("Unknown username yields the same failure kind", func(t *testing.T) {
		store := new(MockUserLookup)
		store.On("GetByUsername", ctx, "nobody").
			Return(nil, repository.NewRecordNotFound()).Once()

		provider := board.NewUserProvider(store)
		identity, err := provider.VerifyIdentity(ctx, "nobody", "whatever")

		assert.ErrorIs(t, err, board.ErrMismatchedHashAndPassword)
		assert.Nil(t, identity)
	})
}

func TestFindIdentityByID(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Resolves current record", func(t *testing.T) {
		store := new(MockUserLookup)
		store.On("GetByUserID", ctx, userID).Return(&board.User{
			ID:       userID,
			Username: "alice",
			Verified: true,
			Admin:    true,
		}, nil).Once()

		provider := board.NewUserProvider(store)
		identity, err := provider.FindIdentityByID(ctx, userID.String())

		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Username())
		assert.True(t, identity.IsVerified())
		assert.True(t, identity.IsAdmin())
	})

	t.Run("Vanished user", func(t *testing.T) {
		store := new(MockUserLookup)
		store.On("GetByUserID", ctx, userID).
			Return(nil, repository.NewRecordNotFound()).Once()

		provider := board.NewUserProvider(store)
		identity, err := provider.FindIdentityByID(ctx, userID.String())

		assert.ErrorIs(t, err, board.ErrIdentityNotFound)
		assert.Nil(t, identity)
	})

	t.Run("Malformed id", func(t *testing.T) {
		provider := board.NewUserProvider(new(MockUserLookup))
		identity, err := provider.FindIdentityByID(ctx, "not-a-uuid")

		assert.ErrorIs(t, err, board.ErrIdentityNotFound)
		assert.Nil(t, identity)
	})
}
