package aws

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published to the storefront namespace.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricPaymentCreated   = "PaymentCreated"
	MetricTicketsOrdered   = "TicketsOrdered"
	MetricPaymentSucceeded = "PaymentSucceeded"
	MetricPaymentFailed    = "PaymentFailed"
)

// metricsAPI is the part of *cloudwatch.Client used here.
type metricsAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsClient sends single data points to CloudWatch. A nil or disabled
// client drops every point.
type MetricsClient struct {
	api       metricsAPI
	namespace string
	enabled   bool
}

// NewMetricsClient builds a client from the default AWS config. It stays
// disabled unless CLOUDWATCH_ENABLED=true; CLOUDWATCH_NAMESPACE overrides
// the namespace.
func NewMetricsClient(ctx context.Context) (*MetricsClient, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	namespace := os.Getenv("CLOUDWATCH_NAMESPACE")
	if namespace == "" {
		namespace = "TicketStorefront"
	}
	return newMetricsClient(cloudwatch.NewFromConfig(cfg), namespace, os.Getenv("CLOUDWATCH_ENABLED") == "true"), nil
}

func newMetricsClient(api metricsAPI, namespace string, enabled bool) *MetricsClient {
	return &MetricsClient{api: api, namespace: namespace, enabled: enabled}
}

// PutMetric sends one data point.
func (m *MetricsClient) PutMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if !m.IsEnabled() {
		return nil
	}

	_, err := m.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String(metricName),
			Value:      aws.Float64(value),
			Unit:       unit,
			Timestamp:  aws.Time(time.Now()),
			Dimensions: toDimensions(dimensions),
		}},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", metricName, err)
	}
	return nil
}

// RecordCount adds 1 to a counter.
func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions)
}

// RecordLatency records a duration in milliseconds.
func (m *MetricsClient) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// RecordValue records a unitless value such as a ticket count.
func (m *MetricsClient) RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, value, types.StandardUnitNone, dimensions)
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

// toDimensions orders dimensions by name so identical label sets map to the
// same CloudWatch series regardless of map iteration.
func toDimensions(dimensions map[string]string) []types.Dimension {
	names := make([]string, 0, len(dimensions))
	for k := range dimensions {
		names = append(names, k)
	}
	sort.Strings(names)

	dims := make([]types.Dimension, 0, len(names))
	for _, k := range names {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(dimensions[k])})
	}
	return dims
}
