package cache

import (
	"context"
	"testing"
	"time"

	"holosim-indexer/internal/types"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHashCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryHashCache(10, time.Minute)
	require.NoError(t, err)

	var addr types.Pubkey
	addr[0] = 1
	h1 := types.HashContent([]byte("v1"))
	h2 := types.HashContent([]byte("v2"))

	assert.False(t, c.Seen(ctx, addr, h1))
	c.Remember(ctx, addr, h1)
	assert.True(t, c.Seen(ctx, addr, h1))
	assert.False(t, c.Seen(ctx, addr, h2))

	c.Remember(ctx, addr, h2)
	assert.True(t, c.Seen(ctx, addr, h2))

	c.Forget(ctx, addr)
	assert.False(t, c.Seen(ctx, addr, h2))
}

func TestNopHashCache(t *testing.T) {
	var c HashCache = NopHashCache{}
	h := types.HashContent(nil)
	c.Remember(context.Background(), types.Pubkey{}, h)
	assert.False(t, c.Seen(context.Background(), types.Pubkey{}, h))
}

// Redis 不可达时视为未命中，不影响写入路径
func TestRedisHashCache_Unavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisHashCache(rdb, time.Minute)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	h := types.HashContent([]byte("x"))
	c.Remember(ctx, types.Pubkey{}, h)
	assert.False(t, c.Seen(ctx, types.Pubkey{}, h))
}
