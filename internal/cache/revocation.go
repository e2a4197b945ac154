package cache

import (
	"context"
	"fmt"
	"time"
)

// revokedKeyPrefix is the Redis key prefix for revoked token IDs.
const revokedKeyPrefix = "revoked:jti:"

// minRevocationTTL keeps a just-expiring token revoked across small clock skew.
const minRevocationTTL = time.Second

// RevocationStore keeps revoked token IDs in Redis. Each key expires together
// with the token it revokes, so the set never outgrows the live tokens.
type RevocationStore struct {
	cache *Cache
	now   func() time.Time
}

// NewRevocationStore creates a Redis-backed revocation store.
func NewRevocationStore(c *Cache) *RevocationStore {
	return &RevocationStore{cache: c, now: time.Now}
}

// Revoke marks tokenID revoked until expiresAt.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := revocationTTL(s.now(), expiresAt)
	if err := s.cache.client.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("set revoked token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is currently revoked.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.cache.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

func revokedKey(tokenID string) string {
	return revokedKeyPrefix + tokenID
}

func revocationTTL(now, expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < minRevocationTTL {
		return minRevocationTTL
	}
	return ttl
}
