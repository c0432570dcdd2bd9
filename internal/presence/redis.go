package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "presence:"

// RedisTracker keeps one expiring key per online user, so presence is shared by every server instance.
type RedisTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTracker(rdb *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (t *RedisTracker) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return t.rdb.Set(ctx, keyPrefix+userID.String(), time.Now().Unix(), t.ttl).Err()
}

func (t *RedisTracker) Online(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	online := make(map[uuid.UUID]bool, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = keyPrefix + id.String()
	}
	values, err := t.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}
	for i, id := range userIDs {
		online[id] = values[i] != nil
	}
	return online, nil
}
