package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/ticket-storefront/models"
	aws_pkg "github.com/yashrajoria/ticket-storefront/pkg/aws"
)

// EventPublisher announces settled payments to downstream consumers.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

type snsEventPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

// NewSNSEventPublisher publishes payment events as JSON to an SNS topic.
func NewSNSEventPublisher(client aws_pkg.SNSPublisher, topicArn string) EventPublisher {
	return &snsEventPublisher{client: client, topicArn: topicArn}
}

func (p *snsEventPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, data)
}

type noopPublisher struct{}

// NewNoopPublisher is used when EVENT_BUS=none.
func NewNoopPublisher() EventPublisher { return noopPublisher{} }

func (noopPublisher) PublishPaymentEvent(context.Context, models.PaymentEvent) error { return nil }
