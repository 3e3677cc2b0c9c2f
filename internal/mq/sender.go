package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// MessageProducer 是 *kafka.Producer 中发送所需的部分
type MessageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// KafkaJob 表示一条需要发送的 Kafka 消息
type KafkaJob struct {
	Topic     string
	Partition int32
	Key       []byte
	Value     []byte
}

// Delivery 单条消息的投递结果
type Delivery struct {
	Job *KafkaJob
	Err error
}

// DeliverBatch 把一批消息投给 producer，共用一个回执通道，等待全部 ack。
// timeout 覆盖整批；超时或 ctx 取消时仍未回执的消息记为失败。
func DeliverBatch(ctx context.Context, producer MessageProducer, jobs []*KafkaJob, timeout time.Duration) (delivered []*KafkaJob, failed []Delivery) {
	if len(jobs) == 0 {
		return nil, nil
	}

	// 容量等于消息数，迟到的回执不会阻塞 librdkafka 的回调
	events := make(chan kafka.Event, len(jobs))
	waiting := make(map[int]*KafkaJob, len(jobs))

	for i, job := range jobs {
		err := producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &job.Topic, Partition: job.Partition},
			Key:            job.Key,
			Value:          job.Value,
			Opaque:         i,
		}, events)
		if err != nil {
			failed = append(failed, Delivery{Job: job, Err: fmt.Errorf("produce error: %w", err)})
			continue
		}
		waiting[i] = job
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(waiting) > 0 {
		select {
		case e := <-events:
			msg, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			idx, _ := msg.Opaque.(int)
			job, ok := waiting[idx]
			if !ok {
				continue
			}
			delete(waiting, idx)
			if msg.TopicPartition.Error != nil {
				failed = append(failed, Delivery{Job: job, Err: msg.TopicPartition.Error})
			} else {
				delivered = append(delivered, job)
			}
		case <-timer.C:
			return delivered, appendPending(failed, jobs, waiting, fmt.Errorf("delivery timeout (>%v)", timeout))
		case <-ctx.Done():
			return delivered, appendPending(failed, jobs, waiting, fmt.Errorf("ctx cancelled: %w", ctx.Err()))
		}
	}
	return delivered, failed
}

func appendPending(failed []Delivery, jobs []*KafkaJob, waiting map[int]*KafkaJob, err error) []Delivery {
	for i := range jobs {
		if job, ok := waiting[i]; ok {
			failed = append(failed, Delivery{Job: job, Err: err})
		}
	}
	return failed
}
