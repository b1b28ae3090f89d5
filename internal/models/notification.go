package models

import "time"

const (
	NotificationApproved = "submission_approved"
	NotificationRejected = "submission_rejected"
	NotificationDeleted  = "submission_deleted"
)

// Notification tells a signed-in submitter what moderation did to their photo (PostgreSQL)
type Notification struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Type            string    `json:"type" gorm:"size:30;index"`
	RecipientID     uint      `json:"recipient_id" gorm:"index"`
	SubmissionID    uint      `json:"submission_id" gorm:"index"`
	PreviewImageURL string    `json:"preview_image_url"`
	Message         string    `json:"message"`
	IsRead          bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}
