package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	anonSessionPrefix = "photowall:anon_session:"
	anonLikesPrefix   = "photowall:anon_likes:"
)

// ErrInvalidSession is returned for tokens the server never issued or that expired.
var ErrInvalidSession = errors.New("invalid anonymous session")

// AnonymousLikes tracks which anonymous sessions liked which submission.
type AnonymousLikes struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewAnonymousLikes(client *redis.Client, sessionTTL time.Duration) *AnonymousLikes {
	return &AnonymousLikes{client: client, sessionTTL: sessionTTL}
}

func likesKey(submissionID uint) string {
	return fmt.Sprintf("%s%d", anonLikesPrefix, submissionID)
}

// IssueSession creates a new anonymous session token.
func (a *AnonymousLikes) IssueSession(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := a.client.Set(ctx, anonSessionPrefix+token, 1, a.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("store anonymous session: %w", err)
	}
	return token, nil
}

func (a *AnonymousLikes) ValidateSession(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return ErrInvalidSession
	}
	n, err := a.client.Exists(ctx, anonSessionPrefix+token).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidSession
	}
	return nil
}

// Add records the like and reports whether it was new.
func (a *AnonymousLikes) Add(ctx context.Context, submissionID uint, token string) (bool, error) {
	n, err := a.client.SAdd(ctx, likesKey(submissionID), token).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (a *AnonymousLikes) Remove(ctx context.Context, submissionID uint, token string) error {
	return a.client.SRem(ctx, likesKey(submissionID), token).Err()
}

func (a *AnonymousLikes) Has(ctx context.Context, submissionID uint, token string) (bool, error) {
	return a.client.SIsMember(ctx, likesKey(submissionID), token).Result()
}

// Clear forgets every anonymous like of a deleted submission.
func (a *AnonymousLikes) Clear(ctx context.Context, submissionID uint) error {
	return a.client.Del(ctx, likesKey(submissionID)).Err()
}
