package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/cache"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

func newGallery(t *testing.T, e *env) (*GalleryService, *cache.GalleryCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	gc := cache.NewGalleryCache(rdb, time.Minute, zerolog.Nop())
	return NewGalleryService(e.submissions, e.likes, e.rejected, gc), gc
}

func TestGallery_PageShowsApprovedWithLikes(t *testing.T) {
	e := newEnv(t)
	g, _ := newGallery(t, e)
	ctx := context.Background()
	e.seed(1, "a", models.StatusApproved, "", e.now.Add(-time.Hour))
	e.seed(2, "b", models.StatusApproved, "", e.now)
	e.seed(3, "c", models.StatusPending, "", e.now)

	viewer := auth.Identity{UserID: 4}
	_, err := e.ledger.Like(ctx, 1, viewer)
	require.NoError(t, err)

	page, liked, err := g.Page(ctx, viewer, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, uint(2), page.Items[0].ID)
	assert.True(t, liked[1])
	assert.False(t, liked[2])

	_, liked, err = g.Page(ctx, auth.Anonymous, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestGallery_CacheInvalidatedByModeration(t *testing.T) {
	e := newEnv(t)
	g, gc := newGallery(t, e)
	e.moderation = NewModerationService(e.submissions, e.rejected, e.store, e.anon, e.feed, gc, zerolog.Nop())
	ctx := context.Background()
	e.seed(1, "a", models.StatusPending, "", e.now)

	page, _, err := g.Page(ctx, auth.Anonymous, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = e.moderation.Approve(ctx, moderator, 1)
	require.NoError(t, err)

	page, _, err = g.Page(ctx, auth.Anonymous, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestGallery_LikesShowOnCachedPage(t *testing.T) {
	e := newEnv(t)
	g, gc := newGallery(t, e)
	ledger := NewLikeLedger(e.submissions, e.likes, e.anon, e.feed, gc, zerolog.Nop())
	ctx := context.Background()
	e.seed(1, "a", models.StatusApproved, "", e.now)
	viewer := auth.Identity{UserID: 9}

	page, _, err := g.Page(ctx, viewer, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Zero(t, page.Items[0].Likes)

	state, err := ledger.Like(ctx, 1, viewer)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Likes)

	page, liked, err := g.Page(ctx, viewer, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Items[0].Likes)
	assert.True(t, liked[1])

	_, err = ledger.Unlike(ctx, 1, viewer)
	require.NoError(t, err)
	page, _, err = g.Page(ctx, viewer, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Items[0].Likes)

	token, err := ledger.IssueAnonymousSession(ctx)
	require.NoError(t, err)
	_, err = ledger.LikeAnonymous(ctx, 1, token)
	require.NoError(t, err)
	page, _, err = g.Page(ctx, auth.Anonymous, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Items[0].Likes)
}

// approvingSubmissions approves a submission right after the gallery query
// has read the store, before the page is cached.
type approvingSubmissions struct {
	repositories.SubmissionRepository
	approve func()
}

func (r *approvingSubmissions) ListByStatus(ctx context.Context, status models.SubmissionStatus, offset, limit int) ([]models.Submission, int64, error) {
	items, total, err := r.SubmissionRepository.ListByStatus(ctx, status, offset, limit)
	if r.approve != nil {
		approve := r.approve
		r.approve = nil
		approve()
	}
	return items, total, err
}

func TestGallery_ApprovalDuringPageLoadIsNotLost(t *testing.T) {
	e := newEnv(t)
	_, gc := newGallery(t, e)
	moderation := NewModerationService(e.submissions, e.rejected, e.store, e.anon, e.feed, gc, zerolog.Nop())
	ctx := context.Background()
	e.seed(1, "a", models.StatusPending, "", e.now)

	repo := &approvingSubmissions{SubmissionRepository: e.submissions}
	repo.approve = func() {
		_, err := moderation.Approve(ctx, moderator, 1)
		require.NoError(t, err)
	}
	g := NewGalleryService(repo, e.likes, e.rejected, gc)

	page, _, err := g.Page(ctx, auth.Anonymous, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, _, err = g.Page(ctx, auth.Anonymous, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestGallery_GetHidesUnapproved(t *testing.T) {
	e := newEnv(t)
	g, _ := newGallery(t, e)
	ctx := context.Background()
	e.seed(1, "a", models.StatusPending, "", e.now)

	_, err := g.Get(ctx, auth.Anonymous, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	sub, err := g.Get(ctx, moderator, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status)
}

func TestGallery_StatusLookup(t *testing.T) {
	e := newEnv(t)
	g, _ := newGallery(t, e)
	ctx := context.Background()

	_, err := g.StatusLookup(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = g.StatusLookup(ctx, " ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	sub := e.seed(7, "alice", models.StatusPending, "", e.now.Add(-48*time.Hour))
	_, err = e.moderation.Reject(ctx, moderator, 7, models.ReasonInvalidUsername)
	require.NoError(t, err)

	view, err := g.StatusLookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sub.TransactionID, view.TransactionID)
	assert.Equal(t, models.StatusRejected, view.Status)
	assert.Equal(t, "Invalid username", view.RejectionReason)

	// a later duplicate rejection is what alice sees next
	require.NoError(t, e.rejected.Create(ctx, &models.RejectedSubmission{
		Username:  "alice",
		Reason:    "Duplicate of submission #3 by bob",
		CreatedAt: e.now,
	}))
	view, err = g.StatusLookup(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, view.TransactionID)
	assert.Equal(t, "Duplicate of submission #3 by bob", view.RejectionReason)
}

func TestNormalizePage(t *testing.T) {
	p, l := NormalizePage(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, DefaultPageSize, l)

	_, l = NormalizePage(3, 1000)
	assert.Equal(t, MaxPageSize, l)
}
