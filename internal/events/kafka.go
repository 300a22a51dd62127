package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher appends ledger events to a Kafka topic as a durable journal.
// Messages are keyed by user so one user's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
	}

	log.Info("kafka ledger journal enabled", zap.Strings("brokers", brokers), zap.String("topic", topic))

	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, stream string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := []byte(stream)
	if userID, ok := event.UserID(); ok {
		key = []byte(fmt.Sprintf("user_%d", userID))
	}

	msg := kafka.Message{
		Key:   key,
		Value: data,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "stream", Value: []byte(stream)},
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
