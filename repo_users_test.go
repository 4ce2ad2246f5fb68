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

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := board.NewUsersRepository(db)

	seed := &board.User{
		Username:     "Bob",
		PasswordHash: "x",
	}
	created, err := users.Register(ctx, seed)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	t.Run("Lookup is case-sensitive", func(t *testing.T) {
		record, err := users.GetByUsername(ctx, "Bob")
		require.NoError(t, err)
		assert.Equal(t, created.ID, record.ID)

		_, err = users.GetByUsername(ctx, "bob")
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("Get by id", func(t *testing.T) {
		record, err := users.GetByUserID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", record.Username)

		_, err = users.GetByUserID(ctx, uuid.New())
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("Insert is the uniqueness authority", func(t *testing.T) {
		_, err := users.Register(ctx, &board.User{
			Username:     "Bob",
			PasswordHash: "y",
		})
		assert.ErrorIs(t, err, board.ErrUsernameTaken)
	})

	t.Run("SetVerified flips the flag once and stays set", func(t *testing.T) {
		require.NoError(t, users.SetVerified(ctx, created.ID, true))

		record, err := users.GetByUserID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, record.Verified)

		// re-applying is a no-op success
		require.NoError(t, users.SetVerified(ctx, created.ID, true))
	})

	t.Run("SetVerified on missing user", func(t *testing.T) {
		err := users.SetVerified(ctx, uuid.New(), true)
		assert.True(t, repository.IsRecordNotFound(err))
	})
}
