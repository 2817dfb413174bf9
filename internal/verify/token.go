// Package verify implements the email verification flow: single-use tokens
// bound to a user identity, stored in Redis with a bounded lifetime.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sentinel-auth/sentinel/internal/shared"
)

// DefaultTokenTTL bounds a verification link's lifetime.
const DefaultTokenTTL = 48 * time.Hour

// TokenStore issues and consumes single-use verification tokens.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a fresh token bound to the user. Earlier tokens for the same
// user stay valid until consumed or expired.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("verify: issue token: %w", err)
	}
	return token, nil
}

// Consume atomically fetches and deletes the token, returning the bound user
// ID. A token can be consumed exactly once; unknown or expired tokens report
// ErrNotFound.
func (s *TokenStore) Consume(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("verify: consume token: %w", err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("verify: malformed token payload: %w", err)
	}
	return userID, nil
}

func (s *TokenStore) key(token string) string {
	return "verify:token:" + token
}
