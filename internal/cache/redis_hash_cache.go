package cache

import (
	"context"
	"errors"
	"time"

	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"

	"github.com/redis/go-redis/v9"
)

// Redis key 前缀
const hashKeyPrefix = "holosim:hash:"

// RedisHashCache 多实例共享的哈希缓存，Redis 不可用时退化为未命中
type RedisHashCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisHashCache(rdb *redis.Client, ttl time.Duration) *RedisHashCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisHashCache{rdb: rdb, ttl: ttl}
}

func (r *RedisHashCache) getKey(address types.Pubkey) string {
	return hashKeyPrefix + address.String()
}

func (r *RedisHashCache) Seen(ctx context.Context, address types.Pubkey, hash types.ContentHash) bool {
	val, err := r.rdb.Get(ctx, r.getKey(address)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return false
	case err != nil:
		logger.Warnf("[HashCache] redis get failed: address=%s, err=%v", address, err)
		return false
	default:
		return val == hash.String()
	}
}

func (r *RedisHashCache) Remember(ctx context.Context, address types.Pubkey, hash types.ContentHash) {
	if err := r.rdb.Set(ctx, r.getKey(address), hash.String(), r.ttl).Err(); err != nil {
		logger.Warnf("[HashCache] redis set failed: address=%s, err=%v", address, err)
	}
}

func (r *RedisHashCache) Forget(ctx context.Context, address types.Pubkey) {
	if err := r.rdb.Del(ctx, r.getKey(address)).Err(); err != nil {
		logger.Warnf("[HashCache] redis del failed: address=%s, err=%v", address, err)
	}
}

func (r *RedisHashCache) Close() error {
	return r.rdb.Close()
}
