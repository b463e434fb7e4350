package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps daily delivery keys in Redis with a TTL long enough to
// outlive the day they cover. Permanent keys are stored without expiry.
type RedisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, prefix: "competency:ledger:", ttl: ttl}
}

func (l *RedisLedger) HasSent(ctx context.Context, tenantID string, key Key) (bool, error) {
	_, err := l.client.Get(ctx, l.redisKey(tenantID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisLedger) MarkSent(ctx context.Context, tenantID string, key Key, intentID string) error {
	return l.client.SetNX(ctx, l.redisKey(tenantID, key), intentID, l.ttlFor(key)).Err()
}

// ttlFor returns 0, which go-redis sends as no expiry, for permanent keys.
func (l *RedisLedger) ttlFor(key Key) time.Duration {
	if key.Permanent() {
		return 0
	}
	return l.ttl
}

func (l *RedisLedger) redisKey(tenantID string, key Key) string {
	return l.prefix + tenantID + ":" + key.String()
}
