package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// GalleryPageCache caches gallery pages.
type GalleryPageCache interface {
	Get(ctx context.Context, page, limit int) (*models.GalleryPage, int64, bool)
	Set(ctx context.Context, gen int64, p *models.GalleryPage)
	Invalidate(ctx context.Context) error
}

// GalleryService serves the public read side: the approved gallery, single
// submissions and the status lookup.
type GalleryService struct {
	submissions repositories.SubmissionRepository
	likes       repositories.LikeRepository
	rejected    repositories.RejectedRepository
	cache       GalleryPageCache
}

func NewGalleryService(
	submissions repositories.SubmissionRepository,
	likes repositories.LikeRepository,
	rejected repositories.RejectedRepository,
	cache GalleryPageCache,
) *GalleryService {
	return &GalleryService{submissions: submissions, likes: likes, rejected: rejected, cache: cache}
}

// NormalizePage clamps paging parameters.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Page returns approved submissions, newest first, plus the ids the caller
// has liked.
func (g *GalleryService) Page(ctx context.Context, caller auth.Identity, page, limit int) (*models.GalleryPage, map[uint]bool, error) {
	page, limit = NormalizePage(page, limit)

	out, gen, ok := g.cache.Get(ctx, page, limit)
	if !ok {
		items, total, err := g.submissions.ListByStatus(ctx, models.StatusApproved, (page-1)*limit, limit)
		if err != nil {
			return nil, nil, err
		}
		out = &models.GalleryPage{Items: items, Total: total, Page: page, Limit: limit}
		g.cache.Set(ctx, gen, out)
	}

	liked := map[uint]bool{}
	if caller.IsAnonymous() || len(out.Items) == 0 {
		return out, liked, nil
	}
	ids := make([]uint, len(out.Items))
	for i := range out.Items {
		ids[i] = out.Items[i].ID
	}
	liked, err := g.likes.LikedSubmissionIDs(ctx, caller.UserID, ids)
	if err != nil {
		return nil, nil, err
	}
	return out, liked, nil
}

// Get returns one submission. Only moderators see submissions that are not approved.
func (g *GalleryService) Get(ctx context.Context, caller auth.Identity, id uint) (*models.Submission, error) {
	sub, err := g.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.CurrentStatus() != models.StatusApproved && !caller.Has(auth.CapModerate) {
		return nil, ErrNotFound
	}
	return sub, nil
}

// StatusLookup reports the latest attempt by username: the newest
// submission, or the newest duplicate rejection if that came later.
func (g *GalleryService) StatusLookup(ctx context.Context, username string) (*models.SubmissionStatusView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "is required"}
	}

	sub, err := g.submissions.LatestByUsername(ctx, username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	rec, err := g.rejected.LatestByUsername(ctx, username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	switch {
	case sub == nil && rec == nil:
		return nil, ErrNotFound
	case rec != nil && (sub == nil || rec.CreatedAt.After(sub.CreatedAt)):
		return &models.SubmissionStatusView{
			Username:        rec.Username,
			Status:          models.StatusRejected,
			RejectionReason: rec.Reason,
			SubmittedAt:     rec.CreatedAt,
		}, nil
	}

	view := &models.SubmissionStatusView{
		TransactionID: sub.TransactionID,
		Username:      sub.Username,
		Status:        sub.CurrentStatus(),
		SubmittedAt:   sub.CreatedAt,
	}
	if view.Status == models.StatusRejected && sub.RejectionReason != nil {
		view.RejectionReason = *sub.RejectionReason
	}
	return view, nil
}

// Mine lists the caller's own submissions in every status.
func (g *GalleryService) Mine(ctx context.Context, caller auth.Identity) ([]models.Submission, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	return g.submissions.ListByOwner(ctx, caller.UserID)
}
