package models

import (
	"errors"
	"fmt"
)

// SubmissionStatus represents the moderation lifecycle of a submission
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"

	// StatusDeleted is never stored. Deleting a submission removes its row.
	StatusDeleted SubmissionStatus = "deleted"
)

// ErrInvalidTransition is returned when a moderation action is not allowed from the current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidTransitions defines the moderator actions allowed from each status.
var ValidTransitions = map[SubmissionStatus][]SubmissionStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusRejected: {StatusApproved, StatusDeleted},
	StatusApproved: {StatusDeleted},
	StatusDeleted:  {},
}

// ParseStatus converts a stored or user supplied value into a SubmissionStatus.
// An empty value is read as pending, which is how legacy rows without a status behave.
func ParseStatus(raw string) (SubmissionStatus, error) {
	switch SubmissionStatus(raw) {
	case "", StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", fmt.Errorf("unknown submission status %q", raw)
}

// IsTerminal reports whether no further transitions are possible.
func (s SubmissionStatus) IsTerminal() bool {
	return len(ValidTransitions[s]) == 0
}

// CanTransitionTo checks if a moderator may move a submission from s to target.
func (s SubmissionStatus) CanTransitionTo(target SubmissionStatus) bool {
	if s == "" {
		s = StatusPending
	}
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo returns target when the move is allowed, or ErrInvalidTransition.
func (s SubmissionStatus) TransitionTo(target SubmissionStatus) (SubmissionStatus, error) {
	if !s.CanTransitionTo(target) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, target)
	}
	return target, nil
}

// Sources returns every status from which target is reachable in one step.
// Repositories use it to make status updates conditional on the current value.
func Sources(target SubmissionStatus) []SubmissionStatus {
	var out []SubmissionStatus
	for _, from := range []SubmissionStatus{StatusPending, StatusApproved, StatusRejected} {
		if from.CanTransitionTo(target) {
			out = append(out, from)
		}
	}
	return out
}

func (s SubmissionStatus) String() string {
	return string(s)
}

// RejectionReason is the category a moderator picks when rejecting a submission
type RejectionReason string

const (
	ReasonDuplicate       RejectionReason = "duplicate"
	ReasonInappropriate   RejectionReason = "inappropriate"
	ReasonInvalidUsername RejectionReason = "invalid_username"
)

var reasonDescriptions = map[RejectionReason]string{
	ReasonDuplicate:       "Duplicate submission",
	ReasonInappropriate:   "Inappropriate content",
	ReasonInvalidUsername: "Invalid username",
}

// Valid reports whether r is one of the known categories.
func (r RejectionReason) Valid() bool {
	_, ok := reasonDescriptions[r]
	return ok
}

// Description is the free text stored on the submission.
func (r RejectionReason) Description() string {
	return reasonDescriptions[r]
}
