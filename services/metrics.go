package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yashrajoria/ticket-storefront/models"
	aws_pkg "github.com/yashrajoria/ticket-storefront/pkg/aws"
)

var (
	paymentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payments_created_total",
			Help: "Payments created at the gateway, by ticket type",
		},
		[]string{"ticket_type"},
	)

	ticketsOrdered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tickets_ordered_total",
			Help: "Tickets in created payments, by ticket type",
		},
		[]string{"ticket_type"},
	)

	paymentsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payments_settled_total",
			Help: "Payments that reached a terminal status, by status",
		},
		[]string{"status"},
	)
)

// PaymentMetrics records business metrics for the payment lifecycle.
type PaymentMetrics interface {
	PaymentCreated(ctx context.Context, quote models.Quote)
	PaymentSettled(ctx context.Context, status models.PaymentStatus)
}

type paymentMetrics struct {
	cloudWatch *aws_pkg.MetricsClient
}

// NewPaymentMetrics always updates the Prometheus counters and also sends
// CloudWatch data points when cw is enabled. cw may be nil.
func NewPaymentMetrics(cw *aws_pkg.MetricsClient) PaymentMetrics {
	return &paymentMetrics{cloudWatch: cw}
}

func (m *paymentMetrics) PaymentCreated(_ context.Context, quote models.Quote) {
	id := quote.TicketType.ID
	paymentsCreated.WithLabelValues(id).Inc()
	ticketsOrdered.WithLabelValues(id).Add(float64(quote.Quantity))

	m.sendAsync(func(ctx context.Context, cw *aws_pkg.MetricsClient) {
		dims := map[string]string{"Service": "ticket-storefront", "TicketType": id}
		_ = cw.RecordCount(ctx, aws_pkg.MetricPaymentCreated, dims)
		_ = cw.RecordValue(ctx, aws_pkg.MetricTicketsOrdered, float64(quote.Quantity), dims)
	})
}

func (m *paymentMetrics) PaymentSettled(_ context.Context, status models.PaymentStatus) {
	paymentsSettled.WithLabelValues(string(status)).Inc()

	name := aws_pkg.MetricPaymentFailed
	if status == models.PaymentStatusPaid {
		name = aws_pkg.MetricPaymentSucceeded
	}
	m.sendAsync(func(ctx context.Context, cw *aws_pkg.MetricsClient) {
		_ = cw.RecordCount(ctx, name, map[string]string{"Service": "ticket-storefront", "Status": string(status)})
	})
}

// sendAsync keeps CloudWatch latency off the request path.
func (m *paymentMetrics) sendAsync(fn func(ctx context.Context, cw *aws_pkg.MetricsClient)) {
	if m.cloudWatch == nil || !m.cloudWatch.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx, m.cloudWatch)
	}()
}
