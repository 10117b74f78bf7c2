package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/ipn-settlement/app/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SettlementEventPublisher emits settlement events to downstream consumers
type SettlementEventPublisher interface {
	Publish(ctx context.Context, event *dto.SettlementEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSettlementEventPublisher writes events keyed by payment id so all
// events of one payment land on the same partition
type KafkaSettlementEventPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaSettlementEventPublisher creates a kafka-backed publisher
func NewKafkaSettlementEventPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaSettlementEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	return &KafkaSettlementEventPublisher{writer: writer, logger: logger}
}

func (p *KafkaSettlementEventPublisher) Publish(ctx context.Context, event *dto.SettlementEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode settlement event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", event.Type, event.PaymentID, err)
	}
	return nil
}

func (p *KafkaSettlementEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopSettlementEventPublisher is used when the event stream is disabled
type NoopSettlementEventPublisher struct{}

func NewNoopSettlementEventPublisher() *NoopSettlementEventPublisher {
	return &NoopSettlementEventPublisher{}
}

func (NoopSettlementEventPublisher) Publish(context.Context, *dto.SettlementEvent) error { return nil }

func (NoopSettlementEventPublisher) Close() error { return nil }
