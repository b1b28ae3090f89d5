package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/anonto42/photowall/backend/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of the local session JWT.
type Claims struct {
	UserID       uint         `json:"user_id"`
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue generates a JWT token for a given user
func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	id := ForUser(user)
	now := t.now()
	claims := &Claims{
		UserID:       id.UserID,
		Email:        id.Email,
		Role:         id.Role,
		Capabilities: id.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies tokenString and returns the identity it carries.
func (t *TokenIssuer) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return Anonymous, ErrInvalidToken
	}
	return Identity{
		UserID:       claims.UserID,
		Email:        claims.Email,
		Role:         claims.Role,
		Capabilities: claims.Capabilities,
	}, nil
}
