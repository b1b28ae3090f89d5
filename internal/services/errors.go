package services

import (
	"errors"
	"fmt"

	"github.com/anonto42/photowall/backend/internal/cache"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

var (
	ErrNotFound        = repositories.ErrNotFound
	ErrAlreadyLiked    = repositories.ErrAlreadyLiked
	ErrInvalidSession  = cache.ErrInvalidSession
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrCandidateLookup = errors.New("duplicate candidate lookup failed")
)

// ValidationError reports bad caller input. Nothing has been written when it
// is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CooldownError is returned when a username submits again too soon.
type CooldownError struct {
	DaysRemaining int
}

func (e *CooldownError) Error() string {
	unit := "days"
	if e.DaysRemaining == 1 {
		unit = "day"
	}
	return fmt.Sprintf("you can submit again in %d %s", e.DaysRemaining, unit)
}
