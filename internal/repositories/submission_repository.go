package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/anonto42/photowall/backend/internal/models"
)

// SubmissionRepository defines the data operations on submissions
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	LatestByUsername(ctx context.Context, username string) (*models.Submission, error)
	ListByStatus(ctx context.Context, status models.SubmissionStatus, offset, limit int) ([]models.Submission, int64, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Submission, error)
	DuplicateCandidates(ctx context.Context) ([]models.Submission, error)
	UpdateStatus(ctx context.Context, id uint, target models.SubmissionStatus, reason *string) (*models.Submission, error)
	Delete(ctx context.Context, id uint) (*models.Submission, error)
	IncrementLikes(ctx context.Context, id uint) (int, error)
	CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int64, error)
}

// PostgresSubmissionRepository implements SubmissionRepository with gorm
type PostgresSubmissionRepository struct {
	db *gorm.DB
}

// NewPostgresSubmissionRepository creates a new PostgresSubmissionRepository
func NewPostgresSubmissionRepository(db *gorm.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

// statusValues expands a status into the stored values it covers. Legacy
// rows may carry an empty status, which reads as pending.
func statusValues(statuses ...models.SubmissionStatus) []string {
	out := make([]string, 0, len(statuses)+1)
	for _, s := range statuses {
		out = append(out, string(s))
		if s == models.StatusPending {
			out = append(out, "")
		}
	}
	return out
}

func (r *PostgresSubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub.Status == "" {
		sub.Status = models.StatusPending
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *PostgresSubmissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var sub models.Submission
	if err := r.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// LatestByUsername returns the most recent submission for username.
func (r *PostgresSubmissionRepository) LatestByUsername(ctx context.Context, username string) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC, id DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// ListByStatus pages through submissions with the given status, newest first.
func (r *PostgresSubmissionRepository) ListByStatus(ctx context.Context, status models.SubmissionStatus, offset, limit int) ([]models.Submission, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Submission{}).Where("status IN ?", statusValues(status))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Submission
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *PostgresSubmissionRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&subs).Error
	return subs, err
}

// DuplicateCandidates returns the pending and approved submissions that carry
// a hash, oldest first.
func (r *PostgresSubmissionRepository) DuplicateCandidates(ctx context.Context) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.WithContext(ctx).
		Where("status IN ?", statusValues(models.StatusPending, models.StatusApproved)).
		Where("phash IS NOT NULL AND phash <> ''").
		Order("created_at ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

// UpdateStatus moves a submission to target, but only if its current status
// allows it. The check and the write are one statement.
func (r *PostgresSubmissionRepository) UpdateStatus(ctx context.Context, id uint, target models.SubmissionStatus, reason *string) (*models.Submission, error) {
	sources := models.Sources(target)
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: nothing transitions to %s", models.ErrInvalidTransition, target)
	}

	updates := map[string]interface{}{"status": string(target), "rejection_reason": nil}
	if reason != nil {
		updates["rejection_reason"] = *reason
	}

	res := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, statusValues(sources...)).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}

	sub, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return sub, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, sub.CurrentStatus(), target)
	}
	return sub, nil
}

// Delete removes a submission and its like records. Only statuses that may
// transition to deleted are removed. The removed row is returned so the
// caller can clean up its image.
func (r *PostgresSubmissionRepository) Delete(ctx context.Context, id uint) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, id).Error; err != nil {
			return notFound(err)
		}
		if !sub.CurrentStatus().CanTransitionTo(models.StatusDeleted) {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, sub.CurrentStatus(), models.StatusDeleted)
		}
		if err := tx.Where("submission_id = ?", id).Delete(&models.LikeRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status IN ?", id, statusValues(models.Sources(models.StatusDeleted)...)).
			Delete(&models.Submission{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: status changed concurrently", models.ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// IncrementLikes adds one like to an approved submission and returns the new count.
func (r *PostgresSubmissionRepository) IncrementLikes(ctx context.Context, id uint) (int, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.StatusApproved).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return r.likes(ctx, id)
}

func (r *PostgresSubmissionRepository) likes(ctx context.Context, id uint) (int, error) {
	var sub models.Submission
	if err := r.db.WithContext(ctx).Select("likes").First(&sub, id).Error; err != nil {
		return 0, notFound(err)
	}
	return sub.Likes, nil
}

// CountByStatus counts submissions per status.
func (r *PostgresSubmissionRepository) CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[models.SubmissionStatus]int64{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for _, row := range rows {
		status, err := models.ParseStatus(row.Status)
		if err != nil {
			return nil, fmt.Errorf("count by status: %w", err)
		}
		counts[status] += row.Count
	}
	return counts, nil
}
