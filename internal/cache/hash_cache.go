package cache

import (
	"context"
	"fmt"
	"time"

	"holosim-indexer/internal/types"

	"github.com/zeromicro/go-zero/core/collection"
)

// HashCache 记录每个地址最近一次成功落库的内容哈希，命中时写入方可跳过数据库
type HashCache interface {
	// Seen 缓存中该地址的哈希与 hash 相同时返回 true
	Seen(ctx context.Context, address types.Pubkey, hash types.ContentHash) bool
	// Remember 提交成功后记录哈希
	Remember(ctx context.Context, address types.Pubkey, hash types.ContentHash)
	// Forget 写入失败或结果不确定时清除，避免误判
	Forget(ctx context.Context, address types.Pubkey)
}

// MemoryHashCache 进程内缓存，基于 go-zero collection.Cache（LRU 上限 + 过期）
type MemoryHashCache struct {
	cache *collection.Cache
}

func NewMemoryHashCache(limit int, ttl time.Duration) (*MemoryHashCache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	var opts []collection.CacheOption
	if limit > 0 {
		opts = append(opts, collection.WithLimit(limit))
	}
	c, err := collection.NewCache(ttl, opts...)
	if err != nil {
		return nil, fmt.Errorf("create memory hash cache failed: %w", err)
	}
	return &MemoryHashCache{cache: c}, nil
}

func (m *MemoryHashCache) Seen(_ context.Context, address types.Pubkey, hash types.ContentHash) bool {
	v, ok := m.cache.Get(address.String())
	if !ok {
		return false
	}
	h, ok := v.(types.ContentHash)
	return ok && h == hash
}

func (m *MemoryHashCache) Remember(_ context.Context, address types.Pubkey, hash types.ContentHash) {
	m.cache.Set(address.String(), hash)
}

func (m *MemoryHashCache) Forget(_ context.Context, address types.Pubkey) {
	m.cache.Del(address.String())
}

// NopHashCache 不缓存，所有判重交给数据库
type NopHashCache struct{}

func (NopHashCache) Seen(context.Context, types.Pubkey, types.ContentHash) bool { return false }
func (NopHashCache) Remember(context.Context, types.Pubkey, types.ContentHash)  {}
func (NopHashCache) Forget(context.Context, types.Pubkey)                       {}
