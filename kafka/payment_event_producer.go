package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/yashrajoria/ticket-storefront/models"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PaymentEventProducer struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

func NewPaymentEventProducer(brokers []string, topic string, logger *zap.Logger) *PaymentEventProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	logger.Info("Kafka producer initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return NewPaymentEventProducerWithWriter(w, topic, logger)
}

// NewPaymentEventProducerWithWriter wraps an existing writer.
func NewPaymentEventProducerWithWriter(w MessageWriter, topic string, logger *zap.Logger) *PaymentEventProducer {
	return &PaymentEventProducer{writer: w, topic: topic, logger: logger}
}

// PublishPaymentEvent writes the event keyed by payment id, so all events of
// one payment land on the same partition.
func (p *PaymentEventProducer) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to send payment event", zap.String("topic", p.topic), zap.String("payment_id", event.PaymentID), zap.Error(err))
		return err
	}

	p.logger.Info("Sent payment event", zap.String("topic", p.topic), zap.String("type", event.Type), zap.String("payment_id", event.PaymentID))
	return nil
}

func (p *PaymentEventProducer) Close() {
	_ = p.writer.Close()
	p.logger.Info("Kafka producer closed")
}
