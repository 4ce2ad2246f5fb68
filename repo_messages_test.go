package board_test

import (
	"context"
	"testing"
	"time"

	"github.com/clubgate/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	messages := board.NewMessagesRepository(db)

	first, err := messages.Append(ctx, "alice", "first post", nil)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// distinct timestamps keep the ordering assertions unambiguous
	time.Sleep(5 * time.Millisecond)

	second, err := messages.Append(ctx, "bob", "second post", nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	reply, err := messages.Append(ctx, "alice", "a reply", &first.ID)
	require.NoError(t, err)
	assert.True(t, reply.IsReply())
	require.NotNil(t, reply.Parent)
	assert.Equal(t, first.ID, *reply.Parent)

	t.Run("Newest first places late appends before earlier ones", func(t *testing.T) {
		feed, err := messages.ListNewestFirst(ctx)
		require.NoError(t, err)
		require.Len(t, feed, 3)

		assert.Equal(t, reply.ID, feed[0].ID)
		assert.Equal(t, second.ID, feed[1].ID)
		assert.Equal(t, first.ID, feed[2].ID)
	})

	t.Run("Oldest first is the mirror view over the same set", func(t *testing.T) {
		thread, err := messages.ListOldestFirst(ctx)
		require.NoError(t, err)
		require.Len(t, thread, 3)

		assert.Equal(t, first.ID, thread[0].ID)
		assert.Equal(t, second.ID, thread[1].ID)
		assert.Equal(t, reply.ID, thread[2].ID)
	})

	t.Run("Append does not validate parent existence", func(t *testing.T) {
		missing := int64(9999)
		orphan, err := messages.Append(ctx, "carol", "into the void", &missing)
		require.NoError(t, err)
		assert.Equal(t, missing, *orphan.Parent)
	})
}

func TestMessagesRepositoryEmpty(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	messages := board.NewMessagesRepository(db)

	feed, err := messages.ListNewestFirst(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed)
	assert.NotNil(t, feed)
}
