package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaQueue is a kafka-backed Queue. One client handles produce; each
// Consume call opens its own group consumer for the topic.
type KafkaQueue struct {
	brokers  []string
	group    string
	producer *kgo.Client
	logger   *zap.Logger
}

// NewKafkaQueue connects a producer to the given brokers.
func NewKafkaQueue(brokers []string, group string, logger *zap.Logger) (Queue, error) {
	producer, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	return &KafkaQueue{
		brokers:  brokers,
		group:    group,
		producer: producer,
		logger:   logger,
	}, nil
}

func (q *KafkaQueue) Publish(ctx context.Context, topic string, message interface{}) error {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	record := &kgo.Record{Topic: topic, Value: jsonMessage}
	if err := q.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	return nil
}

func (q *KafkaQueue) Consume(ctx context.Context, topic string, handler Handler) error {
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(q.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(q.group),
	)
	if err != nil {
		return fmt.Errorf("connect kafka consumer: %w", err)
	}
	defer consumer.Close()

	for {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(t string, p int32, err error) {
			q.logger.Error("kafka fetch error", zap.String("topic", t), zap.Int32("partition", p), zap.Error(err))
		})
		fetches.EachRecord(func(record *kgo.Record) {
			if err := handler(record.Value); err != nil {
				q.logger.Error("error processing message", zap.String("topic", topic), zap.Error(err))
			}
		})
	}
}

func (q *KafkaQueue) Close() error {
	q.producer.Close()
	return nil
}
