package mq

import (
	"context"
	"fmt"
	"time"

	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize = 32 * 1024
	defaultLingerMs  = 5
)

type TopicOption struct {
	Topic      string // topic名称
	Partitions int    // 分区数
}

type KafkaProducerOption struct {
	Brokers   string // Kafka broker 地址，多个用英文逗号分隔（如 "localhost:9092,localhost:9093"）
	BatchSize int    // 批处理大小（单位字节），如 32768 = 32KB
	LingerMs  int    // 批处理最大延迟（毫秒），建议 5~20ms 之间
	Topics    []TopicOption
}

// NewKafkaProducer 创建 Kafka 生产者，缺失的 topic 会按配置的分区数创建
func NewKafkaProducer(cfg KafkaProducerOption) (*kafka.Producer, error) {
	if err := ensureTopics(cfg); err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	localIP, _ := utils.GetLocalIP()
	if localIP == "" {
		localIP = "unknown"
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         fmt.Sprintf("holosim-indexer-%s", localIP),

		// 可靠性保障
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		// 性能优化
		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",

		"message.max.bytes": 2 * 1024 * 1024, // 2MB
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

func ensureTopics(cfg KafkaProducerOption) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, err := adminClient.GetMetadata(nil, true, 10000)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	logger.Infof("[mq] Kafka broker count = %d, using replication factor = %d", len(meta.Brokers), replicationFactor)

	existing := make(map[string]bool, len(meta.Topics))
	for _, topic := range meta.Topics {
		existing[topic.Topic] = true
	}

	var toCreate []kafka.TopicSpecification
	for _, t := range cfg.Topics {
		if t.Topic == "" || existing[t.Topic] {
			continue
		}
		toCreate = append(toCreate, kafka.TopicSpecification{
			Topic:             t.Topic,
			NumPartitions:     max(t.Partitions, 1),
			ReplicationFactor: replicationFactor,
		})
	}
	if len(toCreate) == 0 {
		return nil
	}

	results, err := adminClient.CreateTopics(ctx, toCreate)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
	}
	return nil
}
