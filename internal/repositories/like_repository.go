package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anonto42/photowall/backend/internal/models"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// Like records the like and bumps the counter together. An existing like
	// returns ErrAlreadyLiked with the unchanged count.
	Like(ctx context.Context, submissionID, userID uint) (int, error)
	// Unlike removes the like and lowers the counter. removed is false when
	// there was nothing to remove.
	Unlike(ctx context.Context, submissionID, userID uint) (likes int, removed bool, err error)
	HasUserLiked(ctx context.Context, submissionID, userID uint) (bool, error)
	LikedSubmissionIDs(ctx context.Context, userID uint, submissionIDs []uint) (map[uint]bool, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

func (r *PostgresLikeRepository) Like(ctx context.Context, submissionID, userID uint) (int, error) {
	var likes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &models.LikeRecord{SubmissionID: submissionID, UserID: userID}
		if err := tx.Create(record).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyLiked
			}
			return err
		}
		res := tx.Model(&models.Submission{}).
			Where("id = ?", submissionID).
			UpdateColumn("likes", gorm.Expr("likes + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var err error
		likes, err = currentLikes(tx, submissionID)
		return err
	})
	if errors.Is(err, ErrAlreadyLiked) {
		// the failed insert aborted the transaction, read outside it
		current, cerr := currentLikes(r.db.WithContext(ctx), submissionID)
		if cerr != nil {
			return 0, cerr
		}
		return current, ErrAlreadyLiked
	}
	return likes, err
}

func (r *PostgresLikeRepository) Unlike(ctx context.Context, submissionID, userID uint) (int, bool, error) {
	var (
		likes   int
		removed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("submission_id = ? AND user_id = ?", submissionID, userID).Delete(&models.LikeRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			removed = true
			err := tx.Model(&models.Submission{}).
				Where("id = ?", submissionID).
				UpdateColumn("likes", gorm.Expr("CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END")).Error
			if err != nil {
				return err
			}
		}
		var err error
		likes, err = currentLikes(tx, submissionID)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return likes, removed, nil
}

// HasUserLiked checks if a user has liked a specific submission
func (r *PostgresLikeRepository) HasUserLiked(ctx context.Context, submissionID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LikeRecord{}).
		Where("submission_id = ? AND user_id = ?", submissionID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LikedSubmissionIDs returns which of submissionIDs the user has liked.
func (r *PostgresLikeRepository) LikedSubmissionIDs(ctx context.Context, userID uint, submissionIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.LikeRecord{}).
		Where("user_id = ? AND submission_id IN ?", userID, submissionIDs).
		Pluck("submission_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func currentLikes(db *gorm.DB, submissionID uint) (int, error) {
	var sub models.Submission
	if err := db.Select("likes").First(&sub, submissionID).Error; err != nil {
		return 0, notFound(err)
	}
	return sub.Likes, nil
}
