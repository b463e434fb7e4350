package notifications

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLedger(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	ledger := NewRedisLedger(client, time.Minute)
	tenantID := uuid.NewString()
	key := Key{Subject: "a-1", Day: "2024-06-28", Tier: "none"}

	sent, err := ledger.HasSent(ctx, tenantID, key)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, ledger.MarkSent(ctx, tenantID, key, "intent-1"))
	require.NoError(t, ledger.MarkSent(ctx, tenantID, key, "intent-2"))

	sent, err = ledger.HasSent(ctx, tenantID, key)
	require.NoError(t, err)
	assert.True(t, sent)

	stored, err := client.Get(ctx, ledger.redisKey(tenantID, key)).Result()
	require.NoError(t, err)
	assert.Equal(t, "intent-1", stored)
}

func TestRedisLedgerTTLByKey(t *testing.T) {
	ledger := NewRedisLedger(nil, 720*time.Hour)

	daily := Key{Subject: "a-1", Day: "2024-06-28", Tier: "none"}
	assert.Equal(t, 720*time.Hour, ledger.ttlFor(daily))

	started := Key{Subject: cycleSubject("c-1"), Day: keyDayOnce, Tier: keyTierStarted}
	completed := Key{Subject: cycleSubject("c-1"), Day: keyDayOnce, Tier: keyTierComplete}
	window := Key{Subject: "a-1", Day: "2024-06-30", Tier: keyTierHRWindow}
	for _, key := range []Key{started, completed, window} {
		assert.True(t, key.Permanent(), key.String())
		assert.Zero(t, ledger.ttlFor(key), key.String())
	}
}

func TestRedisLedgerCycleKeysDoNotExpire(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	ledger := NewRedisLedger(client, time.Minute)
	tenantID := uuid.NewString()

	completed := Key{Subject: cycleSubject("c-1"), Day: keyDayOnce, Tier: keyTierComplete}
	daily := Key{Subject: "a-1", Day: "2024-06-28", Tier: "none"}
	require.NoError(t, ledger.MarkSent(ctx, tenantID, completed, "intent-1"))
	require.NoError(t, ledger.MarkSent(ctx, tenantID, daily, "intent-2"))

	ttl, err := client.TTL(ctx, ledger.redisKey(tenantID, completed)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)

	ttl, err = client.TTL(ctx, ledger.redisKey(tenantID, daily)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
