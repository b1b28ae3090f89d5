package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/changefeed"
	"github.com/anonto42/photowall/backend/internal/metrics"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

// AnonymousLikeStore remembers which anonymous sessions liked what.
type AnonymousLikeStore interface {
	IssueSession(ctx context.Context) (string, error)
	ValidateSession(ctx context.Context, token string) error
	Add(ctx context.Context, submissionID uint, token string) (bool, error)
	Remove(ctx context.Context, submissionID uint, token string) error
	Has(ctx context.Context, submissionID uint, token string) (bool, error)
}

// LikeLedger counts likes on approved submissions. Authenticated likes are
// backed by LikeRecords, anonymous ones by session sets.
type LikeLedger struct {
	submissions repositories.SubmissionRepository
	likes       repositories.LikeRepository
	anon        AnonymousLikeStore
	feed        changefeed.Feed
	gallery     GalleryInvalidator
	log         zerolog.Logger
}

func NewLikeLedger(
	submissions repositories.SubmissionRepository,
	likes repositories.LikeRepository,
	anon AnonymousLikeStore,
	feed changefeed.Feed,
	gallery GalleryInvalidator,
	log zerolog.Logger,
) *LikeLedger {
	return &LikeLedger{
		submissions: submissions,
		likes:       likes,
		anon:        anon,
		feed:        feed,
		gallery:     gallery,
		log:         log.With().Str("component", "likes").Logger(),
	}
}

// likeable loads an approved submission. Other statuses look missing.
func (l *LikeLedger) likeable(ctx context.Context, id uint) (*models.Submission, error) {
	sub, err := l.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.CurrentStatus() != models.StatusApproved {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (l *LikeLedger) IssueAnonymousSession(ctx context.Context) (string, error) {
	return l.anon.IssueSession(ctx)
}

// LikeAnonymous adds one like from an anonymous session. A session that
// already liked the submission gets ErrAlreadyLiked and the current count.
func (l *LikeLedger) LikeAnonymous(ctx context.Context, submissionID uint, token string) (int, error) {
	if err := l.anon.ValidateSession(ctx, token); err != nil {
		metrics.LikesTotal.WithLabelValues("anonymous", "invalid_session").Inc()
		return 0, err
	}
	sub, err := l.likeable(ctx, submissionID)
	if err != nil {
		return 0, err
	}

	added, err := l.anon.Add(ctx, submissionID, token)
	if err != nil {
		return 0, err
	}
	if !added {
		metrics.LikesTotal.WithLabelValues("anonymous", "already_liked").Inc()
		return sub.Likes, ErrAlreadyLiked
	}

	count, err := l.submissions.IncrementLikes(ctx, submissionID)
	if err != nil {
		if rerr := l.anon.Remove(context.WithoutCancel(ctx), submissionID, token); rerr != nil {
			l.log.Error().Err(rerr).Uint("id", submissionID).Msg("undo anonymous like")
		}
		return 0, err
	}

	metrics.LikesTotal.WithLabelValues("anonymous", "liked").Inc()
	l.publishCount(ctx, sub, count)
	return count, nil
}

// AnonymousStatus reports whether the session liked the submission.
func (l *LikeLedger) AnonymousStatus(ctx context.Context, submissionID uint, token string) (models.LikeState, error) {
	if err := l.anon.ValidateSession(ctx, token); err != nil {
		return models.LikeState{}, err
	}
	sub, err := l.likeable(ctx, submissionID)
	if err != nil {
		return models.LikeState{}, err
	}
	liked, err := l.anon.Has(ctx, submissionID, token)
	if err != nil {
		return models.LikeState{}, err
	}
	return models.LikeState{SubmissionID: submissionID, Liked: liked, Likes: sub.Likes}, nil
}

// Like records a like for identity. Liking twice leaves one record and the
// count unchanged.
func (l *LikeLedger) Like(ctx context.Context, submissionID uint, identity auth.Identity) (models.LikeState, error) {
	if identity.IsAnonymous() {
		return models.LikeState{}, ErrUnauthenticated
	}
	sub, err := l.likeable(ctx, submissionID)
	if err != nil {
		return models.LikeState{}, err
	}

	count, err := l.likes.Like(ctx, submissionID, identity.UserID)
	switch {
	case errors.Is(err, ErrAlreadyLiked):
		metrics.LikesTotal.WithLabelValues("authenticated", "already_liked").Inc()
		return models.LikeState{SubmissionID: submissionID, Liked: true, Likes: count}, nil
	case err != nil:
		return models.LikeState{}, err
	}

	metrics.LikesTotal.WithLabelValues("authenticated", "liked").Inc()
	l.publishCount(ctx, sub, count)
	return models.LikeState{SubmissionID: submissionID, Liked: true, Likes: count}, nil
}

// Unlike removes identity's like if there is one.
func (l *LikeLedger) Unlike(ctx context.Context, submissionID uint, identity auth.Identity) (models.LikeState, error) {
	if identity.IsAnonymous() {
		return models.LikeState{}, ErrUnauthenticated
	}
	sub, err := l.likeable(ctx, submissionID)
	if err != nil {
		return models.LikeState{}, err
	}

	count, removed, err := l.likes.Unlike(ctx, submissionID, identity.UserID)
	if err != nil {
		return models.LikeState{}, err
	}
	if removed {
		metrics.LikesTotal.WithLabelValues("authenticated", "unliked").Inc()
		l.publishCount(ctx, sub, count)
	}
	return models.LikeState{SubmissionID: submissionID, Liked: false, Likes: count}, nil
}

// ToggleLike flips identity's like on the submission.
func (l *LikeLedger) ToggleLike(ctx context.Context, submissionID uint, identity auth.Identity) (models.LikeState, error) {
	if identity.IsAnonymous() {
		return models.LikeState{}, ErrUnauthenticated
	}
	liked, err := l.likes.HasUserLiked(ctx, submissionID, identity.UserID)
	if err != nil {
		return models.LikeState{}, err
	}
	if liked {
		return l.Unlike(ctx, submissionID, identity)
	}
	return l.Like(ctx, submissionID, identity)
}

func (l *LikeLedger) Status(ctx context.Context, submissionID uint, identity auth.Identity) (models.LikeState, error) {
	if identity.IsAnonymous() {
		return models.LikeState{}, ErrUnauthenticated
	}
	sub, err := l.likeable(ctx, submissionID)
	if err != nil {
		return models.LikeState{}, err
	}
	liked, err := l.likes.HasUserLiked(ctx, submissionID, identity.UserID)
	if err != nil {
		return models.LikeState{}, err
	}
	return models.LikeState{SubmissionID: submissionID, Liked: liked, Likes: sub.Likes}, nil
}

// publishCount runs after every committed count change. Cached gallery
// pages carry the count, so they are dropped too.
func (l *LikeLedger) publishCount(ctx context.Context, before *models.Submission, count int) {
	if err := l.gallery.Invalidate(ctx); err != nil {
		l.log.Warn().Err(err).Uint("id", before.ID).Msg("invalidate gallery cache")
	}
	after := *before
	after.Likes = count
	if err := l.feed.Publish(ctx, changefeed.Updated(before, &after)); err != nil {
		l.log.Warn().Err(err).Uint("id", before.ID).Msg("publish like event")
	}
}
