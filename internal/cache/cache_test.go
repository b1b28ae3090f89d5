package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/photowall/backend/internal/models"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestGalleryCache(t *testing.T) {
	mr, client := newRedis(t)
	c := NewGalleryCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, 1, 20)
	assert.False(t, ok)

	page := &models.GalleryPage{
		Items: []models.Submission{{ID: 1, Username: "alice", Status: models.StatusApproved, Likes: 3}},
		Total: 1, Page: 1, Limit: 20,
	}
	c.Set(ctx, gen, page)

	got, _, ok := c.Get(ctx, 1, 20)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Items[0].Username)
	assert.Equal(t, 3, got.Items[0].Likes)

	require.NoError(t, c.Invalidate(ctx))
	_, gen, ok = c.Get(ctx, 1, 20)
	assert.False(t, ok)

	c.Set(ctx, gen, page)
	mr.FastForward(2 * time.Minute)
	_, _, ok = c.Get(ctx, 1, 20)
	assert.False(t, ok)
}

func TestGalleryCache_SetAfterInvalidateIsNeverServed(t *testing.T) {
	_, client := newRedis(t)
	c := NewGalleryCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, 1, 20)
	require.False(t, ok)

	// the page was read from the store before this invalidation
	require.NoError(t, c.Invalidate(ctx))
	c.Set(ctx, gen, &models.GalleryPage{Page: 1, Limit: 20})

	_, _, ok = c.Get(ctx, 1, 20)
	assert.False(t, ok)
}

func TestGalleryCache_RedisDownIsAMiss(t *testing.T) {
	mr, client := newRedis(t)
	c := NewGalleryCache(client, time.Minute, zerolog.Nop())
	mr.Close()

	_, gen, ok := c.Get(context.Background(), 1, 20)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), gen)
}

func TestAnonymousLikes(t *testing.T) {
	mr, client := newRedis(t)
	a := NewAnonymousLikes(client, time.Hour)
	ctx := context.Background()

	token, err := a.IssueSession(ctx)
	require.NoError(t, err)
	require.NoError(t, a.ValidateSession(ctx, token))
	assert.ErrorIs(t, a.ValidateSession(ctx, "not-a-uuid"), ErrInvalidSession)
	assert.ErrorIs(t, a.ValidateSession(ctx, "7b0e3a4c-2f41-4c55-9c53-1f7c1f6ac0de"), ErrInvalidSession)

	added, err := a.Add(ctx, 5, token)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = a.Add(ctx, 5, token)
	require.NoError(t, err)
	assert.False(t, added)

	has, err := a.Has(ctx, 5, token)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, a.Clear(ctx, 5))
	assert.False(t, mr.Exists(likesKey(5)))

	mr.FastForward(2 * time.Hour)
	assert.ErrorIs(t, a.ValidateSession(ctx, token), ErrInvalidSession)
}
