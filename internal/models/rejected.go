package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RejectedSubmission is a log entry written when intake refuses a submission
// as a duplicate of an existing one. It lives in MongoDB and is purged after
// the retention window.
//
// Duplicates are detected before upload, so new entries carry no image;
// ImageURL and ImagePath are only set on records imported from the old
// upload-first flow, and the purge deletes those images. Moderators compare
// against the original via OriginalSubmissionID.
type RejectedSubmission struct {
	ID                   primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Username             string             `json:"username" bson:"username"`
	ImageURL             string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	ImagePath            string             `json:"-" bson:"image_path,omitempty"`
	Caption              string             `json:"caption" bson:"caption"`
	Reason               string             `json:"reason" bson:"reason"`
	OriginalSubmissionID uint               `json:"original_submission_id" bson:"original_submission_id"`
	OriginalUsername     string             `json:"original_username" bson:"original_username"`
	PHash                string             `json:"phash" bson:"phash"`
	CreatedAt            time.Time          `json:"created_at" bson:"created_at"`
}
