package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/clothing-shop/internal/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const headerEventType = "event_type"

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	logger = logger.With(zap.String("component", "kafka_producer"), zap.String("topic", topic))
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		ErrorLogger:  kafka.LoggerFunc(logger.Sugar().Errorf),
	}
	return &Producer{writer: writer, logger: logger}
}

// Publish JSON-encodes value and writes it under key.
func (p *Producer) Publish(ctx context.Context, key string, value any, headers ...kafka.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
		Time:    time.Now(),
	})
}

// PublishEvent keys the envelope by aggregate id so all events of one order
// land on the same partition.
func (p *Producer) PublishEvent(ctx context.Context, e event.Event) error {
	err := p.Publish(ctx, e.AggregateID, e, kafka.Header{Key: headerEventType, Value: []byte(e.EventType)})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.EventType, err)
	}
	p.logger.Debug("event published",
		zap.String("event_id", e.ID),
		zap.String("event_type", e.EventType),
		zap.String("aggregate_id", e.AggregateID))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
