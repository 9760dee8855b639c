package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces token hashes in a shared Redis.
const DefaultRedisPrefix = "znahidky:tokens:"

// RedisStore keeps the pair in a Redis hash with the two fixed field
// names. The web client uses one hash per browser session.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore returns a store for the hash at prefix+id. A positive ttl
// is refreshed on every Save.
func NewRedisStore(client *redis.Client, prefix, id string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, key: prefix + id, ttl: ttl}
}

// Key returns the Redis key of the hash.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (Pair, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Pair{}, fmt.Errorf("load tokens: %w", err)
	}
	return Pair{Access: values[AccessKey], Refresh: values[RefreshKey]}, nil
}

func (s *RedisStore) Save(ctx context.Context, p Pair) error {
	if p.IsZero() {
		return s.Clear(ctx)
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, AccessKey, p.Access, RefreshKey, p.Refresh)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}
