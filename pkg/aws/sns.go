package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is a minimal interface for publishing messages to SNS.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish publishes a raw JSON message to the given SNS topic ARN. The event
// type is copied into a message attribute so subscribers can filter on it.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
	}
	if t := eventType(message); t != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"event_type": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(t)},
		}
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}
