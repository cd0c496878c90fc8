package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yashrajoria/ticket-storefront/common/logger"
	"github.com/yashrajoria/ticket-storefront/models"
	"github.com/yashrajoria/ticket-storefront/providers"
	"github.com/yashrajoria/ticket-storefront/repository"
	"go.uber.org/zap"
)

// ServiceError represents a typed error with an HTTP status code.
// Details are merged into the JSON error body.
type ServiceError struct {
	StatusCode int
	Message    string
	Details    map[string]interface{}
}

func (e *ServiceError) Error() string {
	return e.Message
}

// RequiredOrderFields lists the fields reported on a MissingFields error.
var RequiredOrderFields = []string{"ticketType", "quantity", "email", "name"}

// EventInfo describes the event the storefront sells tickets for.
type EventInfo struct {
	Name  string
	Date  string
	Venue string
}

// PaymentService defines the order and payment lifecycle operations.
type PaymentService interface {
	CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, *ServiceError)
	HandleWebhook(ctx context.Context, paymentID string) (*models.Payment, *ServiceError)
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentStatusResponse, *ServiceError)
	Catalog() *models.Catalog
}

// paymentServiceImpl implements PaymentService.
type paymentServiceImpl struct {
	gateway   providers.PaymentProvider
	catalog   *models.Catalog
	pricer    *Pricer
	dedup     repository.DedupRepository
	publisher EventPublisher
	metrics   PaymentMetrics
	event     EventInfo
	baseURL   string
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	gateway providers.PaymentProvider,
	catalog *models.Catalog,
	dedup repository.DedupRepository,
	publisher EventPublisher,
	metrics PaymentMetrics,
	event EventInfo,
	baseURL string,
	logger *zap.Logger,
) PaymentService {
	if publisher == nil {
		publisher = NewNoopPublisher()
	}
	if metrics == nil {
		metrics = NewPaymentMetrics(nil)
	}
	return &paymentServiceImpl{
		gateway:   gateway,
		catalog:   catalog,
		pricer:    NewPricer(catalog),
		dedup:     dedup,
		publisher: publisher,
		metrics:   metrics,
		event:     event,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

func (s *paymentServiceImpl) Catalog() *models.Catalog {
	return s.catalog
}

// CreatePayment validates and prices an order, then opens a hosted checkout.
func (s *paymentServiceImpl) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, *ServiceError) {
	if strings.TrimSpace(req.TicketType) == "" || !req.Quantity.Present() ||
		strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, &ServiceError{
			StatusCode: http.StatusBadRequest,
			Message:    "Missing required fields",
			Details:    map[string]interface{}{"required": RequiredOrderFields},
		}
	}

	// A non-integer quantity prices as 0 so an unknown ticket type is still
	// reported first.
	qty, ok := req.Quantity.Int()
	if !ok {
		qty = 0
	}

	quote, err := s.pricer.Quote(req.TicketType, qty)
	switch {
	case errors.Is(err, ErrUnknownTicketType):
		return nil, &ServiceError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid ticket type",
			Details:    map[string]interface{}{"validTypes": s.catalog.IDs()},
		}
	case errors.Is(err, ErrInvalidQuantity):
		return nil, &ServiceError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Quantity must be between %d and %d", MinQuantity, MaxQuantity),
		}
	case err != nil:
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to create payment", Details: map[string]interface{}{"message": err.Error()}}
	}

	ticket := quote.TicketType
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	payReq := models.PaymentRequest{
		Amount:      quote.Total,
		Description: fmt.Sprintf("%s - %s x%d", s.event.Name, ticket.Name, quote.Quantity),
		RedirectURL: s.baseURL + "/success.html",
		CancelURL:   s.baseURL + "/",
		WebhookURL:  s.baseURL + "/api/webhook",
		Email:       email,
		Quote:       quote,
		Metadata: models.PaymentMetadata{
			TicketType:    ticket.ID,
			Quantity:      quote.Quantity,
			Email:         email,
			Name:          name,
			TicketName:    ticket.Name,
			TicketPrice:   ticket.Price.Float64(),
			ServiceCharge: ticket.ServiceCharge.Float64(),
			EventDate:     s.event.Date,
			Venue:         s.event.Venue,
		},
	}

	log := s.log(ctx)
	payment, err := s.gateway.CreatePayment(ctx, payReq)
	if err != nil {
		log.Error("Payment creation failed",
			zap.String("provider", s.gateway.Name()),
			zap.String("ticket_type", ticket.ID),
			zap.Int("quantity", quote.Quantity),
			zap.Error(err),
		)
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to create payment",
			Details:    map[string]interface{}{"message": err.Error()},
		}
	}

	s.metrics.PaymentCreated(ctx, quote)
	log.Info("Payment created",
		zap.String("provider", s.gateway.Name()),
		zap.String("payment_id", payment.ID),
		zap.String("ticket_type", ticket.ID),
		zap.Int("quantity", quote.Quantity),
		zap.String("amount", quote.Total.String()),
	)

	return &models.CreatePaymentResponse{
		PaymentURL: payment.CheckoutURL,
		PaymentID:  payment.ID,
		Amount:     quote.Total.String(),
	}, nil
}

// HandleWebhook re-fetches the notified payment and acts on its status.
// Repeated notifications log again but publish at most once per status.
func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, paymentID string) (*models.Payment, *ServiceError) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Payment ID required"}
	}

	log := s.log(ctx).With(zap.String("payment_id", paymentID))
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		log.Error("Webhook payment fetch failed", zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to process webhook",
			Details:    map[string]interface{}{"message": err.Error()},
		}
	}

	md := payment.Metadata
	if md == nil {
		md = &models.PaymentMetadata{}
	}
	fields := []zap.Field{
		zap.String("status", string(payment.Status)),
		zap.String("name", md.Name),
		zap.String("email", md.Email),
		zap.Int("quantity", md.Quantity),
		zap.String("ticket_name", md.TicketName),
		zap.String("amount", payment.Amount.Value),
		zap.String("currency", payment.Amount.Currency),
	}

	switch {
	case payment.Status == models.PaymentStatusPaid:
		log.Info("Payment confirmed", fields...)
	case payment.Status.IsUnsuccessful():
		log.Warn("Payment not completed", fields...)
	default:
		log.Debug("Payment not settled yet", zap.String("status", string(payment.Status)))
		return payment, nil
	}

	// A failed publish is answered with 500 so the gateway redelivers.
	if err := s.settle(ctx, log, payment, md); err != nil {
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to process webhook",
			Details:    map[string]interface{}{"message": err.Error()},
		}
	}
	return payment, nil
}

// settle runs the once-per-status side effects of a terminal payment. The
// dedup marker is released again when publishing fails, so a redelivery
// publishes the event.
func (s *paymentServiceImpl) settle(ctx context.Context, log *zap.Logger, payment *models.Payment, md *models.PaymentMetadata) error {
	status := string(payment.Status)
	marked := false
	if s.dedup != nil {
		first, err := s.dedup.MarkProcessed(ctx, payment.ID, status)
		switch {
		case err != nil:
			// Publish without a marker; a duplicate event beats a lost one.
			log.Warn("Dedup store unavailable", zap.Error(err))
		case !first:
			log.Debug("Duplicate notification, side effects skipped")
			return nil
		default:
			marked = true
		}
	}

	eventType := models.EventPaymentFailed
	if payment.Status == models.PaymentStatusPaid {
		eventType = models.EventPaymentSucceeded
	}
	event := models.PaymentEvent{
		Type:       eventType,
		PaymentID:  payment.ID,
		Status:     string(payment.Status),
		Provider:   s.gateway.Name(),
		TicketType: md.TicketType,
		TicketName: md.TicketName,
		Quantity:   md.Quantity,
		Email:      md.Email,
		Name:       md.Name,
		Amount:     payment.Amount.Value,
		Currency:   payment.Amount.Currency,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.publisher.PublishPaymentEvent(ctx, event); err != nil {
		log.Error("Failed to publish payment event", zap.String("type", eventType), zap.Error(err))
		if marked {
			if relErr := s.dedup.Release(ctx, payment.ID, status); relErr != nil {
				log.Error("Failed to release dedup marker", zap.Error(relErr))
			}
		}
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	s.metrics.PaymentSettled(ctx, payment.Status)
	return nil
}

// GetPayment returns the gateway's current view of a payment.
func (s *paymentServiceImpl) GetPayment(ctx context.Context, paymentID string) (*models.PaymentStatusResponse, *ServiceError) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Payment ID required"}
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.log(ctx).Error("Payment status check failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to check payment status",
			Details:    map[string]interface{}{"message": err.Error()},
		}
	}

	return &models.PaymentStatusResponse{
		Status:      payment.Status,
		Amount:      payment.Amount,
		Description: payment.Description,
		Metadata:    payment.Metadata,
	}, nil
}

func (s *paymentServiceImpl) log(ctx context.Context) *zap.Logger {
	return s.logger.With(zap.String("request_id", logger.RequestID(ctx)))
}
