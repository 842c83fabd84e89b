package sessionverifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
)

const DefaultKeyPrefix = "session:"

// RedisStore reads sessions stored as JSON documents under <prefix><id>.
// The principal is taken from the userId field.
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

func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("redis session lookup: %w: %w", gatewayerrors.ErrStoreUnavailable, err)
	}

	if !gjson.Valid(value) {
		return "", false, fmt.Errorf("session %s is not valid JSON", sessionID)
	}

	userID := gjson.Get(value, "userId")
	if !userID.Exists() || userID.String() == "" {
		return "", false, nil
	}

	return userID.String(), true, nil
}
