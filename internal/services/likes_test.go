package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/models"
)

func TestLikeAnonymous(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(1, "alice", models.StatusApproved, "", e.now)

	token, err := e.ledger.IssueAnonymousSession(ctx)
	require.NoError(t, err)

	count, err := e.ledger.LikeAnonymous(ctx, 1, token)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = e.ledger.LikeAnonymous(ctx, 1, token)
	assert.ErrorIs(t, err, ErrAlreadyLiked)
	assert.Equal(t, 1, count)

	other, err := e.ledger.IssueAnonymousSession(ctx)
	require.NoError(t, err)
	count, err = e.ledger.LikeAnonymous(ctx, 1, other)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	state, err := e.ledger.AnonymousStatus(ctx, 1, token)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Equal(t, 2, state.Likes)
}

func TestLikeAnonymous_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(1, "alice", models.StatusPending, "", e.now)

	_, err := e.ledger.LikeAnonymous(ctx, 1, "made-up")
	assert.ErrorIs(t, err, ErrInvalidSession)

	token, err := e.ledger.IssueAnonymousSession(ctx)
	require.NoError(t, err)
	_, err = e.ledger.LikeAnonymous(ctx, 1, token)
	assert.ErrorIs(t, err, ErrNotFound, "pending submissions are not likeable")

	has, err := e.anon.Has(ctx, 1, token)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLike_TwiceCountsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(1, "alice", models.StatusApproved, "", e.now)
	viewer := auth.Identity{UserID: 9}

	first, err := e.ledger.Like(ctx, 1, viewer)
	require.NoError(t, err)
	second, err := e.ledger.Like(ctx, 1, viewer)
	require.NoError(t, err)

	assert.True(t, second.Liked)
	assert.Equal(t, 1, first.Likes)
	assert.Equal(t, 1, second.Likes)

	var records int64
	require.NoError(t, e.db.Model(&models.LikeRecord{}).Where("submission_id = ? AND user_id = ?", 1, 9).Count(&records).Error)
	assert.Equal(t, int64(1), records)
}

func TestToggleLike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(1, "alice", models.StatusApproved, "", e.now)
	viewer := auth.Identity{UserID: 9}

	state, err := e.ledger.ToggleLike(ctx, 1, viewer)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{SubmissionID: 1, Liked: true, Likes: 1}, state)

	state, err = e.ledger.ToggleLike(ctx, 1, viewer)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{SubmissionID: 1, Liked: false, Likes: 0}, state)

	status, err := e.ledger.Status(ctx, 1, viewer)
	require.NoError(t, err)
	assert.False(t, status.Liked)
}

func TestLikeCountNeverNegative(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(1, "alice", models.StatusApproved, "", e.now)
	a := auth.Identity{UserID: 1}
	b := auth.Identity{UserID: 2}

	token, err := e.ledger.IssueAnonymousSession(ctx)
	require.NoError(t, err)

	steps := []func() (int, error){
		func() (int, error) { s, err := e.ledger.Unlike(ctx, 1, a); return s.Likes, err },
		func() (int, error) { s, err := e.ledger.ToggleLike(ctx, 1, a); return s.Likes, err },
		func() (int, error) { return e.ledger.LikeAnonymous(ctx, 1, token) },
		func() (int, error) { s, err := e.ledger.ToggleLike(ctx, 1, b); return s.Likes, err },
		func() (int, error) { s, err := e.ledger.ToggleLike(ctx, 1, a); return s.Likes, err },
		func() (int, error) { s, err := e.ledger.Unlike(ctx, 1, a); return s.Likes, err },
		func() (int, error) { s, err := e.ledger.ToggleLike(ctx, 1, b); return s.Likes, err },
		func() (int, error) { s, err := e.ledger.Unlike(ctx, 1, b); return s.Likes, err },
	}
	want := []int{0, 1, 2, 3, 2, 2, 1, 1}
	for i, step := range steps {
		got, err := step()
		require.NoError(t, err, "step %d", i)
		assert.GreaterOrEqual(t, got, 0)
		assert.Equal(t, want[i], got, "step %d", i)
	}
}

func TestLike_RequiresIdentity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seed(1, "alice", models.StatusApproved, "", e.now)

	_, err := e.ledger.Like(ctx, 1, auth.Anonymous)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = e.ledger.ToggleLike(ctx, 1, auth.Anonymous)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
