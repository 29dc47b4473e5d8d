package cache

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChallengeStore keeps short-lived verification state: email MFA codes and
// CSRF nonce replay guards.
type ChallengeStore struct {
	client *redis.Client
}

func NewChallengeStore(client *redis.Client) *ChallengeStore {
	return &ChallengeStore{client: client}
}

func mfaCodeKey(userID string) string { return "mfa:code:" + userID }

func (s *ChallengeStore) StoreMFACode(ctx context.Context, userID string, code string, ttl time.Duration) error {
	return s.client.Set(ctx, mfaCodeKey(userID), code, ttl).Err()
}

// CheckMFACode compares and consumes the stored code. A matched code is
// deleted so it cannot be replayed.
func (s *ChallengeStore) CheckMFACode(ctx context.Context, userID string, code string) (bool, error) {
	stored, err := s.client.Get(ctx, mfaCodeKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get mfa code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	if err := s.client.Del(ctx, mfaCodeKey(userID)).Err(); err != nil {
		return false, fmt.Errorf("consume mfa code: %w", err)
	}
	return true, nil
}

// MarkCSRFNonce records a nonce, returning false when it was already used.
func (s *ChallengeStore) MarkCSRFNonce(ctx context.Context, sessionID string, nonce string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("csrf:%s:%s", sessionID, nonce)
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark csrf nonce: %w", err)
	}
	return ok, nil
}
