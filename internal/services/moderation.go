package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/changefeed"
	"github.com/anonto42/photowall/backend/internal/metrics"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/pkg/storage"
)

// GalleryInvalidator drops cached gallery pages.
type GalleryInvalidator interface {
	Invalidate(ctx context.Context) error
}

// AnonymousLikeClearer forgets the anonymous likes of a submission.
type AnonymousLikeClearer interface {
	Clear(ctx context.Context, submissionID uint) error
}

type BulkAction string

const (
	BulkApprove BulkAction = "approve"
	BulkReject  BulkAction = "reject"
	BulkDelete  BulkAction = "delete"
)

var bulkPastTense = map[BulkAction]string{
	BulkApprove: "approved",
	BulkReject:  "rejected",
	BulkDelete:  "deleted",
}

// ItemResult is the outcome for one id of a bulk request.
type ItemResult struct {
	ID    uint   `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchResult reports a bulk moderation request item by item. Items that
// succeeded stay applied when later ones fail.
type BatchResult struct {
	Action    BulkAction   `json:"action"`
	Items     []ItemResult `json:"items"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

func (b BatchResult) Summary() string {
	msg := fmt.Sprintf("%d of %d submissions %s", b.Succeeded, len(b.Items), bulkPastTense[b.Action])
	if b.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", b.Failed)
	}
	return msg
}

// ModerationService applies moderator decisions to submissions.
type ModerationService struct {
	submissions repositories.SubmissionRepository
	rejected    repositories.RejectedRepository
	store       storage.Store
	anonLikes   AnonymousLikeClearer
	feed        changefeed.Feed
	gallery     GalleryInvalidator
	notify      repositories.NotificationRepository
	log         zerolog.Logger
}

func NewModerationService(
	submissions repositories.SubmissionRepository,
	rejected repositories.RejectedRepository,
	store storage.Store,
	anonLikes AnonymousLikeClearer,
	feed changefeed.Feed,
	gallery GalleryInvalidator,
	log zerolog.Logger,
) *ModerationService {
	return &ModerationService{
		submissions: submissions,
		rejected:    rejected,
		store:       store,
		anonLikes:   anonLikes,
		feed:        feed,
		gallery:     gallery,
		log:         log.With().Str("component", "moderation").Logger(),
	}
}

// NotifyOwners makes moderation decisions leave a notification for
// submitters who were signed in when they submitted.
func (s *ModerationService) NotifyOwners(repo repositories.NotificationRepository) {
	s.notify = repo
}

var notificationTypes = map[models.SubmissionStatus]string{
	models.StatusApproved: models.NotificationApproved,
	models.StatusRejected: models.NotificationRejected,
	models.StatusDeleted:  models.NotificationDeleted,
}

func (s *ModerationService) notifyOwner(ctx context.Context, sub *models.Submission, status models.SubmissionStatus) {
	if s.notify == nil || sub.OwnerID == nil {
		return
	}
	msg := fmt.Sprintf("Your photo %q was %s", sub.Caption, status)
	if status == models.StatusRejected && sub.RejectionReason != nil {
		msg += ": " + *sub.RejectionReason
	}
	n := &models.Notification{
		Type:         notificationTypes[status],
		RecipientID:  *sub.OwnerID,
		SubmissionID: sub.ID,
		Message:      msg,
	}
	if status != models.StatusDeleted {
		n.PreviewImageURL = sub.ImageURL
	}
	if err := s.notify.Create(ctx, n); err != nil {
		s.log.Warn().Err(err).Uint("id", sub.ID).Msg("create owner notification")
	}
}

func authorize(id auth.Identity) error {
	if id.IsAnonymous() {
		return ErrUnauthenticated
	}
	if !id.Has(auth.CapModerate) {
		return ErrForbidden
	}
	return nil
}

func (s *ModerationService) Approve(ctx context.Context, moderator auth.Identity, id uint) (*models.Submission, error) {
	return s.transition(ctx, moderator, id, models.StatusApproved, nil)
}

// Reject stores the description of reason on the submission.
func (s *ModerationService) Reject(ctx context.Context, moderator auth.Identity, id uint, reason models.RejectionReason) (*models.Submission, error) {
	if !reason.Valid() {
		return nil, &ValidationError{Field: "reason", Message: "must be one of: duplicate, inappropriate, invalid_username"}
	}
	desc := reason.Description()
	return s.transition(ctx, moderator, id, models.StatusRejected, &desc)
}

func (s *ModerationService) transition(ctx context.Context, moderator auth.Identity, id uint, target models.SubmissionStatus, reason *string) (*models.Submission, error) {
	action := string(target)
	if err := authorize(moderator); err != nil {
		metrics.ModerationTransitionsTotal.WithLabelValues(action, "forbidden").Inc()
		return nil, err
	}

	before, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		metrics.ModerationTransitionsTotal.WithLabelValues(action, "failed").Inc()
		return nil, err
	}
	if !before.CurrentStatus().CanTransitionTo(target) {
		metrics.ModerationTransitionsTotal.WithLabelValues(action, "invalid").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, before.CurrentStatus(), target)
	}

	after, err := s.submissions.UpdateStatus(ctx, id, target, reason)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, models.ErrInvalidTransition) {
			outcome = "invalid"
		}
		metrics.ModerationTransitionsTotal.WithLabelValues(action, outcome).Inc()
		return nil, err
	}

	s.afterChange(ctx, changefeed.Updated(before, after))
	s.notifyOwner(ctx, after, target)
	metrics.ModerationTransitionsTotal.WithLabelValues(action, "ok").Inc()
	s.log.Info().
		Uint("id", id).
		Uint("moderator_id", moderator.UserID).
		Str("from", before.CurrentStatus().String()).
		Str("to", target.String()).
		Msg("submission status changed")
	return after, nil
}

// Delete removes a submission with its likes and stored image. The image is
// removed after the row, so a storage failure leaves only an orphaned object.
func (s *ModerationService) Delete(ctx context.Context, moderator auth.Identity, id uint) error {
	action := string(models.StatusDeleted)
	if err := authorize(moderator); err != nil {
		metrics.ModerationTransitionsTotal.WithLabelValues(action, "forbidden").Inc()
		return err
	}

	removed, err := s.submissions.Delete(ctx, id)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, models.ErrInvalidTransition) {
			outcome = "invalid"
		}
		metrics.ModerationTransitionsTotal.WithLabelValues(action, outcome).Inc()
		return err
	}

	if err := s.anonLikes.Clear(ctx, id); err != nil {
		s.log.Warn().Err(err).Uint("id", id).Msg("clear anonymous likes")
	}
	if removed.ImagePath != "" {
		if err := s.store.Delete(ctx, removed.ImagePath); err != nil {
			s.log.Warn().Err(err).Uint("id", id).Str("key", removed.ImagePath).Msg("delete submission image")
		}
	}

	s.afterChange(ctx, changefeed.Deleted(removed))
	s.notifyOwner(ctx, removed, models.StatusDeleted)
	metrics.ModerationTransitionsTotal.WithLabelValues(action, "ok").Inc()
	s.log.Info().Uint("id", id).Uint("moderator_id", moderator.UserID).Msg("submission deleted")
	return nil
}

func (s *ModerationService) afterChange(ctx context.Context, e changefeed.Event) {
	if err := s.feed.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("type", string(e.Type)).Msg("publish change event")
	}
	if err := s.gallery.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("invalidate gallery cache")
	}
}

// Bulk applies action to ids one at a time in the given order. A failing id
// does not stop the rest. The error is non-nil only when the request as a
// whole is refused.
func (s *ModerationService) Bulk(ctx context.Context, moderator auth.Identity, action BulkAction, ids []uint, reason models.RejectionReason) (BatchResult, error) {
	result := BatchResult{Action: action, Items: make([]ItemResult, 0, len(ids))}
	if err := authorize(moderator); err != nil {
		return result, err
	}
	if _, ok := bulkPastTense[action]; !ok {
		return result, &ValidationError{Field: "action", Message: "must be one of: approve, reject, delete"}
	}
	if action == BulkReject && !reason.Valid() {
		return result, &ValidationError{Field: "reason", Message: "is required when rejecting"}
	}

	for _, id := range ids {
		var err error
		switch action {
		case BulkApprove:
			_, err = s.Approve(ctx, moderator, id)
		case BulkReject:
			_, err = s.Reject(ctx, moderator, id, reason)
		case BulkDelete:
			err = s.Delete(ctx, moderator, id)
		}

		item := ItemResult{ID: id, OK: err == nil}
		if err != nil {
			item.Error = s.describe(err, id)
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	s.log.Info().
		Str("action", string(action)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("bulk moderation finished")
	return result, nil
}

// describe turns an item error into text safe to return to the caller.
func (s *ModerationService) describe(err error, id uint) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "submission not found"
	case errors.Is(err, models.ErrInvalidTransition):
		return err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		s.log.Error().Err(err).Uint("id", id).Msg("bulk item failed")
		return "internal error"
	}
}

// List returns submissions in one status for the moderation queue.
func (s *ModerationService) List(ctx context.Context, moderator auth.Identity, status models.SubmissionStatus, offset, limit int) ([]models.Submission, int64, error) {
	if err := authorize(moderator); err != nil {
		return nil, 0, err
	}
	return s.submissions.ListByStatus(ctx, status, offset, limit)
}

// Stats counts submissions per status.
func (s *ModerationService) Stats(ctx context.Context, moderator auth.Identity) (map[models.SubmissionStatus]int64, error) {
	if err := authorize(moderator); err != nil {
		return nil, err
	}
	return s.submissions.CountByStatus(ctx)
}

// RecentRejected lists the intake duplicate log, newest first.
func (s *ModerationService) RecentRejected(ctx context.Context, moderator auth.Identity, offset, limit int) ([]models.RejectedSubmission, error) {
	if err := authorize(moderator); err != nil {
		return nil, err
	}
	return s.rejected.ListRecent(ctx, int64(offset), int64(limit))
}
