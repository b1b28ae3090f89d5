package models

import "time"

// Submission is a user contributed photo with caption, stored in PostgreSQL
type Submission struct {
	ID              uint             `json:"id" gorm:"primaryKey"`
	TransactionID   string           `json:"transaction_id" gorm:"size:40;uniqueIndex"`
	Username        string           `json:"username" gorm:"size:50;not null;index"`
	ImageURL        string           `json:"image_url" gorm:"not null"`
	ImagePath       string           `json:"-"` // storage key, used when the image has to be removed
	Caption         string           `json:"caption" gorm:"size:500;not null"`
	PHash           *string          `json:"-" gorm:"column:phash;size:64"`
	Status          SubmissionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	Likes           int              `json:"likes" gorm:"not null;default:0"`
	OwnerID         *uint            `json:"owner_id,omitempty" gorm:"index"`
	CreatedAt       time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CurrentStatus returns the status, treating an empty value as pending.
func (s *Submission) CurrentStatus() SubmissionStatus {
	if s.Status == "" {
		return StatusPending
	}
	return s.Status
}

// Hash returns the perceptual hash or an empty string for legacy rows.
func (s *Submission) Hash() string {
	if s.PHash == nil {
		return ""
	}
	return *s.PHash
}

// SubmissionStatusView is the public projection returned by the status lookup
type SubmissionStatusView struct {
	TransactionID   string           `json:"transaction_id,omitempty"`
	Username        string           `json:"username"`
	Status          SubmissionStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
}

// CreateSubmissionRequest holds the multipart form fields of an upload
type CreateSubmissionRequest struct {
	Username string `form:"username" validate:"required,min=1,max=50"`
	Caption  string `form:"caption" validate:"required,min=1,max=500"`
}

// RejectSubmissionRequest defines the request body for rejecting a submission
type RejectSubmissionRequest struct {
	Reason RejectionReason `json:"reason" validate:"required,oneof=duplicate inappropriate invalid_username"`
}

// BulkModerationRequest applies one action to several submissions
type BulkModerationRequest struct {
	Action string          `json:"action" validate:"required,oneof=approve reject delete"`
	IDs    []uint          `json:"ids" validate:"required,min=1,max=200,dive,gt=0"`
	Reason RejectionReason `json:"reason,omitempty" validate:"omitempty,oneof=duplicate inappropriate invalid_username"`
}

// GalleryPage is one page of the public gallery
type GalleryPage struct {
	Items []Submission `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}
