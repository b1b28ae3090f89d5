// Package auth defines who is calling and what they may do.
package auth

import (
	"github.com/anonto42/photowall/backend/internal/models"
)

// Capability is a named permission carried by an identity.
type Capability string

const (
	CapModerate Capability = "moderate"
)

// Identity is the caller of an operation. The zero value is the anonymous
// visitor.
type Identity struct {
	UserID       uint
	Email        string
	Role         string
	Capabilities []Capability
}

// Anonymous is the unauthenticated caller.
var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.UserID == 0
}

func (i Identity) Has(c Capability) bool {
	for _, have := range i.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// CapabilitiesForRole maps a stored user role to its capabilities.
func CapabilitiesForRole(role string) []Capability {
	switch role {
	case models.RoleModerator:
		return []Capability{CapModerate}
	default:
		return nil
	}
}

// ForUser builds the identity of a stored user.
func ForUser(u *models.User) Identity {
	role := u.Role
	if role == "" {
		role = models.RoleMember
	}
	return Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         role,
		Capabilities: CapabilitiesForRole(role),
	}
}
