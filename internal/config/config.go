package config

import (
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`       // 日志目录（可为相对路径或绝对路径），为空只输出 stdout
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana JSON-RPC 拉取与 websocket 推送地址
type RpcConfig struct {
	Endpoint       string `json:"endpoint"`                       // HTTP RPC 地址，用于 getTransaction / getProgramAccounts
	WsEndpoint     string `json:"ws_endpoint,optional"`           // websocket 地址，feed=ws 时必填
	FetchTimeoutMs int    `json:"fetch_timeout_ms,default=10000"` // 单次拉取交易的超时（毫秒）
}

func (c *RpcConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// GeyserConfig Yellowstone gRPC 连接配置，feed=geyser 时使用
type GeyserConfig struct {
	Endpoint string `json:"endpoint,optional"` // gRPC 服务端地址
	XToken   string `json:"x_token,optional"`  // x-token 认证

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"` // 应用层 ping 心跳间隔（秒）

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=10"` // 底层 keepalive 间隔（秒）
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=5"`   // 底层 keepalive 超时（秒）

	// gRPC 窗口大小调优（用于大数据流推送）
	InitialWindowSize     int `json:"initial_window_size,default=1073741824"`      // 单流窗口大小（字节）
	InitialConnWindowSize int `json:"initial_conn_window_size,default=1073741824"` // 整体连接窗口大小（字节）

	// 消息体大小限制
	MaxCallSendMsgSize int `json:"max_call_send_msg_size,default=67108864"` // 单条消息最大发送字节数
	MaxCallRecvMsgSize int `json:"max_call_recv_msg_size,default=67108864"` // 单条消息最大接收字节数

	ConnectTimeoutSec int `json:"connect_timeout_sec,default=10"` // 连接建立超时（秒）
	SendTimeoutSec    int `json:"send_timeout_sec,default=5"`     // 发送超时（秒）
}

type DatabaseConfig struct {
	Driver string `json:"driver,default=sqlite3,options=sqlite3|pgx"` // sqlite3 或 pgx(PostgreSQL)
	DSN    string `json:"dsn,default=holosim.db"`                     // 数据源
}

// WriterConfig 批量写入配置
type WriterConfig struct {
	BatchSize       int `json:"batch_size,default=500"`         // 单表缓冲达到该条数立即 flush，也是单个事务的最大行数
	FlushIntervalMs int `json:"flush_interval_ms,default=2000"` // 定时 flush 间隔（毫秒）
	MaxRetries      int `json:"max_retries,default=3"`          // live 路径下失败记录重新入队的最大次数
}

func (c *WriterConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// HashCacheConfig 内容哈希缓存，命中时跳过数据库写入
type HashCacheConfig struct {
	Type      string `json:"type,default=memory,options=none|memory|redis"`
	RedisAddr string `json:"redis_addr,optional"`   // type=redis 时使用
	Limit     int    `json:"limit,default=100000"`  // 内存缓存最大条数
	TTLSec    int    `json:"ttl_sec,default=86400"` // 过期时间（秒）
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置，brokers 为空时不发布
type KafkaProducerConfig struct {
	Brokers       string `json:"brokers,optional"`              // Kafka broker 地址，多个用英文逗号分隔
	BatchSize     int    `json:"batch_size,default=32768"`      // 批处理大小（单位字节）
	LingerMs      int    `json:"linger_ms,default=5"`           // 批处理最大延迟（毫秒）
	SendTimeoutMs int    `json:"send_timeout_ms,default=10000"` // 单条消息发送并等待 ack 的超时时间

	Topics struct {
		Accounts string `json:"accounts,default=holosim-accounts"` // 解码后账户的 topic
		TxLogs   string `json:"tx_logs,default=holosim-tx-logs"`   // 交易日志的 topic
	} `json:"topics,optional"`

	Partitions struct {
		Accounts int `json:"accounts,default=8"` // accounts topic 的分区数
		TxLogs   int `json:"tx_logs,default=4"`  // tx_logs topic 的分区数
	} `json:"partitions,optional"`
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

type MonitorConfig struct {
	// 日志中未匹配到任何被跟踪程序时是否给全部程序计数，默认关闭
	CountAllOnMiss bool `json:"count_all_on_miss,optional"`
}

type HttpConfig struct {
	Addr string `json:"addr,default=:8080"` // /health /stats /metrics 监听地址，置为 "-" 关闭
}

// Config 是主配置结构体，用于驱动索引器服务
type Config struct {
	LogConf    LogConfig           `json:"logger,optional"`
	Rpc        RpcConfig           `json:"rpc"`
	Geyser     GeyserConfig        `json:"geyser,optional"`
	Feed       string              `json:"feed,default=ws,options=ws|geyser"` // 推送来源
	Programs   []string            `json:"programs,optional"`                 // 被跟踪的程序地址，为空使用默认三个程序
	Database   DatabaseConfig      `json:"database,optional"`
	Writer     WriterConfig        `json:"writer,optional"`
	HashCache  HashCacheConfig     `json:"hash_cache,optional"`
	KafkaConf  KafkaProducerConfig `json:"kafka_producer,optional"`
	Monitor    MonitorConfig       `json:"monitor,optional"`
	Http       HttpConfig          `json:"http,optional"`
	DumpOnBoot bool                `json:"dump_on_boot,optional"` // 启动时先全量拉取程序账户
}

// ProgramList 返回配置的程序地址，未配置时使用默认列表
func (c *Config) ProgramList() []string {
	if len(c.Programs) == 0 {
		return consts.DefaultPrograms
	}
	return c.Programs
}
