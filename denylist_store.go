package triauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "tad"

var errDenylistRedisUnavailable = errors.New("denylist redis unavailable")

// denylistStore records revoked refresh-token ids. Entries carry a TTL equal
// to the token's remaining lifetime, so the set stays bounded without a
// sweeper: once the token would have expired anyway, the entry lapses.
type denylistStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newDenylistStore(redisClient redis.UniversalClient) *denylistStore {
	return &denylistStore{
		redis:  redisClient,
		prefix: denylistKeyPrefix,
	}
}

func (s *denylistStore) key(jti string) string {
	return s.prefix + ":" + jti
}

// Revoke marks the token id as revoked until it would expire naturally.
// Revoking an already revoked id succeeds; a non-positive ttl is a no-op
// because the token is already dead.
func (s *denylistStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errDenylistRedisUnavailable, err)
	}

	return nil
}

// IsRevoked reports whether the token id has been revoked.
func (s *denylistStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errDenylistRedisUnavailable, err)
	}

	return n > 0, nil
}
