package service

import (
	"context"
	"testing"

	"parenthub/internal/model"
	"parenthub/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionLedger_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ledger := NewReactionLedger(store.Reactions())

	_, err := ledger.AddReaction(ctx, "c", "u", model.ReactionLike)
	require.NoError(t, err)
	_, err = ledger.AddReaction(ctx, "c", "u", model.ReactionLove)
	require.NoError(t, err)

	rows, err := store.Reactions().FindByCommentAndUser(ctx, "c", "u")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.ReactionLove, rows[0].ReactionType)
}

func TestReactionLedger_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ledger := NewReactionLedger(store.Reactions())

	first, err := ledger.AddReaction(ctx, "c", "u", model.ReactionLike)
	require.NoError(t, err)
	second, err := ledger.AddReaction(ctx, "c", "u", model.ReactionLike)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	rows, err := store.Reactions().FindByComment(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReactionLedger_OtherUsersUntouched(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ledger := NewReactionLedger(store.Reactions())

	_, err := ledger.AddReaction(ctx, "c", "u1", model.ReactionLike)
	require.NoError(t, err)
	_, err = ledger.AddReaction(ctx, "c", "u2", model.ReactionSad)
	require.NoError(t, err)
	_, err = ledger.AddReaction(ctx, "c", "u1", model.ReactionWow)
	require.NoError(t, err)

	rows, err := store.Reactions().FindByComment(ctx, "c")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.ReactionSad, rows[0].ReactionType)
	assert.Equal(t, model.ReactionWow, rows[1].ReactionType)
}

func TestReactionLedger_RemoveMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	ledger := NewReactionLedger(memstore.New().Reactions())

	assert.NoError(t, ledger.RemoveReaction(ctx, "c", "u", model.ReactionLike))

	_, err := ledger.AddReaction(ctx, "c", "u", model.ReactionLike)
	require.NoError(t, err)
	require.NoError(t, ledger.RemoveReaction(ctx, "c", "u", model.ReactionLike))

	active, err := ledger.Active(ctx, "c", "u")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestVoteLedger_Idempotent(t *testing.T) {
	ctx := context.Background()
	ledger := NewVoteLedger(memstore.New().Votes())

	applied, err := ledger.Upvote(ctx, "p", "u")
	require.NoError(t, err)
	assert.True(t, applied)

	for i := 0; i < 3; i++ {
		applied, err = ledger.Upvote(ctx, "p", "u")
		require.NoError(t, err)
		assert.False(t, applied)
	}

	voted, err := ledger.HasVoted(ctx, "p", "u")
	require.NoError(t, err)
	assert.True(t, voted)
}
