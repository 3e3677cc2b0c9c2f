package svc

import (
	"context"
	"fmt"
	"time"

	"holosim-indexer/internal/cache"
	"holosim-indexer/internal/config"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/fetcher"
	"holosim-indexer/internal/logic/grpc"
	"holosim-indexer/internal/logic/ingest"
	"holosim-indexer/internal/logic/monitor"
	"holosim-indexer/internal/logic/pubsub"
	"holosim-indexer/internal/logic/writer"
	"holosim-indexer/internal/mq"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/store"
	"holosim-indexer/internal/types"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 包含索引服务共享的资源
type ServiceContext struct {
	Config    config.Config
	Programs  []types.Pubkey
	Store     *store.Store
	Fetcher   *fetcher.RpcFetcher
	HashCache cache.HashCache
	Producer  *kafka.Producer
	Publisher *mq.KafkaPublisher // Kafka 未配置时为 nil
	Writer    *writer.Writer
	Pipeline  *ingest.Pipeline
	Bulk      *ingest.Bulk

	closers []func()
}

// NewServiceContext 按配置初始化存储、缓存、发布与写入组件
func NewServiceContext(c config.Config) (_ *ServiceContext, err error) {
	sc := &ServiceContext{Config: c}
	defer func() {
		if err != nil {
			sc.Close()
		}
	}()

	// 1. 程序列表
	if sc.Programs, err = types.TryPubkeysFromBase58(c.ProgramList()); err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}

	// 2. 数据库
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if sc.Store, err = store.Open(ctx, c.Database.Driver, c.Database.DSN); err != nil {
		return nil, err
	}
	sc.closers = append(sc.closers, func() { _ = sc.Store.Close() })

	// 3. RPC 拉取
	if sc.Fetcher, err = fetcher.NewRpcFetcher(c.Rpc.Endpoint, c.Rpc.FetchTimeout()); err != nil {
		return nil, err
	}

	// 4. 内容哈希缓存
	if sc.HashCache, err = newHashCache(c.HashCache); err != nil {
		return nil, err
	}
	if rc, ok := sc.HashCache.(*cache.RedisHashCache); ok {
		sc.closers = append(sc.closers, func() { _ = rc.Close() })
	}

	// 5. Kafka（可选）
	var publisher writer.Publisher
	if c.KafkaConf.Enabled() {
		if sc.Producer, err = mq.NewKafkaProducer(mq.ProducerOption(c.KafkaConf)); err != nil {
			return nil, fmt.Errorf("kafka producer 初始化失败: %w", err)
		}
		sc.closers = append(sc.closers, func() {
			sc.Producer.Flush(5000)
			sc.Producer.Close()
		})
		sc.Publisher = mq.NewKafkaPublisher(sc.Producer, c.KafkaConf)
		publisher = sc.Publisher
	}

	// 6. 写入方与管道
	sc.Writer = writer.New(sc.Store, writer.Options{
		BatchSize:     c.Writer.BatchSize,
		FlushInterval: c.Writer.FlushInterval(),
		MaxRetries:    c.Writer.MaxRetries,
		Cache:         sc.HashCache,
		Publisher:     publisher,
	})
	sc.Pipeline = ingest.NewPipeline(sc.Store, sc.Writer)
	sc.Bulk = ingest.NewBulk(sc.Fetcher, sc.Store, sc.Writer, 0)

	logger.Infof("[svc] 服务上下文初始化完成: programs=%d, driver=%s, hash_cache=%s, kafka=%v",
		len(sc.Programs), c.Database.Driver, c.HashCache.Type, c.KafkaConf.Enabled())
	return sc, nil
}

func newHashCache(c config.HashCacheConfig) (cache.HashCache, error) {
	ttl := time.Duration(c.TTLSec) * time.Second
	switch c.Type {
	case "none":
		return cache.NopHashCache{}, nil
	case "redis":
		if c.RedisAddr == "" {
			return nil, fmt.Errorf("hash_cache.redis_addr is required for type=redis")
		}
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		return cache.NewRedisHashCache(rdb, ttl), nil
	default:
		return cache.NewMemoryHashCache(c.Limit, ttl)
	}
}

// NewFeed 按配置创建推送源
func (sc *ServiceContext) NewFeed() (core.Feed, error) {
	switch sc.Config.Feed {
	case "geyser":
		feed, err := grpc.NewGeyserFeed(sc.Config.Geyser)
		if err != nil {
			return nil, err
		}
		sc.closers = append(sc.closers, func() { _ = feed.Close() })
		return feed, nil
	default:
		if sc.Config.Rpc.WsEndpoint == "" {
			return nil, fmt.Errorf("rpc.ws_endpoint is required for feed=ws")
		}
		return pubsub.NewFeed(sc.Config.Rpc.WsEndpoint), nil
	}
}

// NewMonitor 组装订阅监控
func (sc *ServiceContext) NewMonitor(feed core.Feed) *monitor.Monitor {
	deps := monitor.Deps{
		Feed:    feed,
		Fetcher: sc.Fetcher,
		Sink:    sc.Pipeline,
		TxStore: sc.Store,
	}
	if sc.Publisher != nil {
		deps.Publisher = sc.Publisher
	}
	return monitor.New(deps, monitor.Options{
		Programs:       sc.Programs,
		CountAllOnMiss: sc.Config.Monitor.CountAllOnMiss,
	})
}

// Close 按初始化的逆序释放资源
func (sc *ServiceContext) Close() {
	for i := len(sc.closers) - 1; i >= 0; i-- {
		sc.closers[i]()
	}
	sc.closers = nil
}
