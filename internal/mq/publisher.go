package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"holosim-indexer/internal/config"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/utils"

	"google.golang.org/protobuf/types/known/structpb"
)

// 事件类型，写在消息前 4 字节
const (
	EventAccountDecoded uint32 = 1
	EventTxLog          uint32 = 2
)

// KafkaPublisher 把落库后的解码结果和交易日志发布到下游 topic
type KafkaPublisher struct {
	producer    MessageProducer
	accounts    string
	txLogs      string
	accountsN   uint32
	txLogsN     uint32
	sendTimeout time.Duration
}

func NewKafkaPublisher(producer MessageProducer, c config.KafkaProducerConfig) *KafkaPublisher {
	timeout := time.Duration(c.SendTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaPublisher{
		producer:    producer,
		accounts:    c.Topics.Accounts,
		txLogs:      c.Topics.TxLogs,
		accountsN:   uint32(max(c.Partitions.Accounts, 1)),
		txLogsN:     uint32(max(c.Partitions.TxLogs, 1)),
		sendTimeout: timeout,
	}
}

// ProducerOption 由配置生成建 topic 所需的参数
func ProducerOption(c config.KafkaProducerConfig) KafkaProducerOption {
	return KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []TopicOption{
			{Topic: c.Topics.Accounts, Partitions: c.Partitions.Accounts},
			{Topic: c.Topics.TxLogs, Partitions: c.Partitions.TxLogs},
		},
	}
}

// PublishAccounts 同一地址固定落在同一分区，保证下游按地址有序
func (p *KafkaPublisher) PublishAccounts(ctx context.Context, recs []*core.DecodedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	jobs := make([]*KafkaJob, 0, len(recs))
	for _, rec := range recs {
		value, err := encodeAccount(rec)
		if err != nil {
			return err
		}
		jobs = append(jobs, &KafkaJob{
			Topic:     p.accounts,
			Partition: utils.PartitionFor(rec.Address, p.accountsN),
			Key:       rec.Address[:],
			Value:     value,
		})
	}
	return p.send(ctx, jobs)
}

func (p *KafkaPublisher) PublishTxLog(ctx context.Context, l *core.TransactionLog) error {
	value, err := encodeTxLog(l)
	if err != nil {
		return err
	}
	return p.send(ctx, []*KafkaJob{{
		Topic:     p.txLogs,
		Partition: utils.PartitionFor(l.ProgramID, p.txLogsN),
		Key:       []byte(l.Signature),
		Value:     value,
	}})
}

func (p *KafkaPublisher) send(ctx context.Context, jobs []*KafkaJob) error {
	_, failed := DeliverBatch(ctx, p.producer, jobs, p.sendTimeout)
	if len(failed) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(failed))
	for _, f := range failed {
		msgs = append(msgs, f.Err.Error())
	}
	logger.Warnf("[KafkaPublisher] %d/%d 条消息发送失败: %s", len(failed), len(jobs), failed[0].Err)
	return fmt.Errorf("kafka send failed (%d/%d): %s", len(failed), len(jobs), strings.Join(msgs, "; "))
}

func encodeAccount(rec *core.DecodedRecord) ([]byte, error) {
	parsed, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields of %s: %w", rec.Address, err)
	}
	msg, err := structpb.NewStruct(map[string]any{
		"program":      rec.ProgramID.String(),
		"address":      rec.Address.String(),
		"account_type": rec.TypeName,
		"content_hash": rec.ContentHash.String(),
		"implemented":  rec.Implemented,
		"decoded_at":   rec.DecodedAt.UTC().Format(time.RFC3339Nano),
		"parsed_json":  string(parsed),
	})
	if err != nil {
		return nil, fmt.Errorf("build account envelope: %w", err)
	}
	return utils.EncodeEnvelope(EventAccountDecoded, msg)
}

func encodeTxLog(l *core.TransactionLog) ([]byte, error) {
	lines := make([]any, len(l.LogLines))
	for i, line := range l.LogLines {
		lines[i] = line
	}
	msg, err := structpb.NewStruct(map[string]any{
		"program":    l.ProgramID.String(),
		"signature":  l.Signature,
		"slot":       float64(l.Slot),
		"logs":       lines,
		"decoded_at": l.DecodedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("build tx log envelope: %w", err)
	}
	return utils.EncodeEnvelope(EventTxLog, msg)
}
