package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, maxSize int, ttl time.Duration) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(maxSize, ttl, nil, WithRedis(client, ttl)), srv
}

func TestRedisTierWriteThrough(t *testing.T) {
	c, srv := newRedisCache(t, 10, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "model", "sys", "prompt", 0, "answer", 7)

	keys := srv.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "vote:cache:")
}

func TestRedisTierServesLocalMiss(t *testing.T) {
	c, _ := newRedisCache(t, 10, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "model", "sys", "prompt", 0, "answer", 7)
	c.Clear() // local tier gone, remote still holds the entry

	entry, ok := c.Get(ctx, "model", "sys", "prompt", 0)
	require.True(t, ok)
	assert.Equal(t, "answer", entry.Value)
	assert.Equal(t, 7, entry.Tokens)

	// The remote hit repopulated the local tier.
	assert.Equal(t, 1, c.Len())
}

func TestRedisTierCorruptedEntryDropped(t *testing.T) {
	c, srv := newRedisCache(t, 10, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "model", "sys", "prompt", 0, "answer", 7)
	key := srv.Keys()[0]
	require.NoError(t, srv.Set(key, "not json"))
	c.Clear()

	_, ok := c.Get(ctx, "model", "sys", "prompt", 0)
	assert.False(t, ok)
	assert.False(t, srv.Exists(key), "corrupted remote entry is deleted, not retried")
}

func TestRedisTierUnavailableDegradesToLocal(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	c := New(10, time.Minute, nil, WithRedis(client, time.Minute))
	ctx := context.Background()

	srv.Close()

	// Neither Put nor Get may fail or block when the remote tier is down.
	c.Put(ctx, "model", "sys", "prompt", 0, "answer", 7)
	entry, ok := c.Get(ctx, "model", "sys", "prompt", 0)
	require.True(t, ok)
	assert.Equal(t, "answer", entry.Value)
}

func TestWithRedisNilClientIgnored(t *testing.T) {
	c := New(10, time.Minute, nil, WithRedis(nil, time.Minute))
	ctx := context.Background()

	c.Put(ctx, "model", "sys", "prompt", 0, "answer", 7)
	_, ok := c.Get(ctx, "model", "sys", "prompt", 0)
	assert.True(t, ok)
}
