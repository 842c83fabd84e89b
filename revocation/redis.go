package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
)

const DefaultKeyPrefix = "revoked:"

// RedisStore treats the presence of <prefix><jti> as revocation.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Exists(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup: %w: %w", gatewayerrors.ErrStoreUnavailable, err)
	}

	return n > 0, nil
}

// Revoke sets <prefix><jti> with a TTL ending at the token's expiry. Tokens
// that have already expired are rejected by expiry and are not stored.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revocation write: %w: %w", gatewayerrors.ErrStoreUnavailable, err)
	}

	return nil
}
