package models

import "time"

// LikeRecord is one authenticated user's like of one submission.
// The pair (submission_id, user_id) is unique.
type LikeRecord struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SubmissionID uint      `json:"submission_id" gorm:"not null;index;uniqueIndex:idx_submission_user_like"`
	UserID       uint      `json:"user_id" gorm:"not null;index;uniqueIndex:idx_submission_user_like"`
	CreatedAt    time.Time `json:"created_at"`
}

func (LikeRecord) TableName() string { return "submission_likes" }

// LikeState is returned by like operations
type LikeState struct {
	SubmissionID uint `json:"submission_id"`
	Liked        bool `json:"liked"`
	Likes        int  `json:"likes"`
}
