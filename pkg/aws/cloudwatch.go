package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const logRetentionDays = 30

// logsAPI is the part of *cloudwatchlogs.Client used here.
type logsAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient ships log lines to one CloudWatch Logs stream per
// process. It is an io.Writer so zap can tee into it.
type CloudWatchLogsClient struct {
	api       logsAPI
	group     string
	stream    string
	enabled   bool
	writeWait time.Duration

	mu            sync.Mutex
	sequenceToken *string
}

// NewCloudWatchLogsClient prepares the log group and a fresh stream named
// after the service. Nothing is created on AWS unless CLOUDWATCH_ENABLED=true.
func NewCloudWatchLogsClient(ctx context.Context, serviceName string) (*CloudWatchLogsClient, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	group := os.Getenv("CLOUDWATCH_LOG_GROUP")
	if group == "" {
		group = "/ticket-storefront"
	}
	stream := fmt.Sprintf("%s-%d", serviceName, time.Now().Unix())

	c := newCloudWatchLogsClient(cloudwatchlogs.NewFromConfig(cfg), group, stream, os.Getenv("CLOUDWATCH_ENABLED") == "true")
	if err := c.setup(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newCloudWatchLogsClient(api logsAPI, group, stream string, enabled bool) *CloudWatchLogsClient {
	return &CloudWatchLogsClient{api: api, group: group, stream: stream, enabled: enabled, writeWait: 5 * time.Second}
}

func (c *CloudWatchLogsClient) setup(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}

	_, err := c.api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(c.group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create log group %s: %w", c.group, err)
	}

	if _, err := c.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(c.group),
		RetentionInDays: aws.Int32(logRetentionDays),
	}); err != nil {
		return fmt.Errorf("set retention on %s: %w", c.group, err)
	}

	if _, err := c.api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
	}); err != nil {
		return fmt.Errorf("create log stream %s: %w", c.stream, err)
	}
	return nil
}

// PutLogEvents sends a batch to the stream, carrying the sequence token
// between calls.
func (c *CloudWatchLogsClient) PutLogEvents(ctx context.Context, events []types.InputLogEvent) error {
	if !c.IsEnabled() || len(events) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out, err := c.api.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
		LogEvents:     events,
		SequenceToken: c.sequenceToken,
	})
	if err != nil {
		return fmt.Errorf("put log events: %w", err)
	}
	c.sequenceToken = out.NextSequenceToken
	return nil
}

// Write implements io.Writer. One call is one log event; delivery failures
// go to stderr and never fail the write.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	msg := bytes.TrimRight(p, "\n")
	if !c.IsEnabled() || len(msg) == 0 {
		return len(p), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.writeWait)
	defer cancel()

	event := types.InputLogEvent{
		Message:   aws.String(string(msg)),
		Timestamp: aws.Int64(time.Now().UnixMilli()),
	}
	if err := c.PutLogEvents(ctx, []types.InputLogEvent{event}); err != nil {
		fmt.Fprintf(os.Stderr, "CloudWatch write error: %v\n", err)
	}
	return len(p), nil
}

func (c *CloudWatchLogsClient) IsEnabled() bool {
	return c != nil && c.enabled
}
