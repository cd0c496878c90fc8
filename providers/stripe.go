package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/ticket-storefront/models"
	"go.uber.org/zap"
)

// StripeProvider implements Gateway with Stripe Checkout sessions. The
// session id plays the role of the payment id.
type StripeProvider struct {
	SecretKey  string
	WebhookKey string
}

// NewStripeProvider configures the global Stripe client. Network retries are
// delegated to the SDK.
func NewStripeProvider(secretKey, webhookKey string, maxRetries int, logger *zap.Logger) *StripeProvider {
	stripe.Key = secretKey
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(int64(maxRetries)),
	}
	if logger != nil {
		cfg.LeveledLogger = logger.Named("stripe").Sugar()
	}
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, cfg))
	return &StripeProvider{SecretKey: secretKey, WebhookKey: webhookKey}
}

// Name implements PaymentProvider.
func (s *StripeProvider) Name() string { return "stripe" }

// CreatePayment opens a Checkout session with one line for the tickets and
// one for the service charge.
func (s *StripeProvider) CreatePayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	currency := strings.ToLower(models.Currency)
	qty := int64(req.Quote.Quantity)

	lineItems := []*stripe.CheckoutSessionLineItemParams{
		{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Quote.TicketType.Name),
				},
				UnitAmount: stripe.Int64(int64(req.Quote.UnitAmount)),
			},
			Quantity: stripe.Int64(qty),
		},
	}
	if req.Quote.ServiceCharge > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Service charge"),
				},
				UnitAmount: stripe.Int64(int64(req.Quote.ServiceCharge)),
			},
			Quantity: stripe.Int64(qty),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(req.RedirectURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Description: stripe.String(req.Description),
		},
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range metadataToMap(req.Metadata) {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe CreatePayment: %w", err)
	}

	p := sessionToPayment(sess)
	p.Description = req.Description
	return p, nil
}

// GetPayment retrieves a Checkout session together with its payment intent.
func (s *StripeProvider) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	if id == "" {
		return nil, ErrMissingPaymentID
	}
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	params.Context = ctx

	sess, err := session.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe GetPayment: %w", err)
	}
	return sessionToPayment(sess), nil
}

// ParseNotification verifies the Stripe-Signature header and returns the
// Checkout session id of checkout.session.* events.
func (s *StripeProvider) ParseNotification(r *http.Request) (string, error) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.WebhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}

	if !strings.HasPrefix(string(event.Type), "checkout.session.") {
		return "", ErrEventIgnored
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	if sess.ID == "" {
		return "", ErrMissingPaymentID
	}
	return sess.ID, nil
}

// ---- Conversion helpers ----

func sessionToPayment(sess *stripe.CheckoutSession) *models.Payment {
	p := &models.Payment{
		ID:          sess.ID,
		Status:      stripeStatus(sess),
		CheckoutURL: sess.URL,
		Amount: models.Amount{
			Currency: strings.ToUpper(string(sess.Currency)),
			Value:    models.Money(sess.AmountTotal).String(),
		},
		Metadata: metadataFromMap(sess.Metadata),
	}
	if p.Amount.Currency == "" {
		p.Amount.Currency = models.Currency
	}
	if sess.PaymentIntent != nil {
		p.Description = sess.PaymentIntent.Description
	}
	return p
}

// stripeStatus folds a Checkout session and its intent onto the storefront's
// payment states.
func stripeStatus(sess *stripe.CheckoutSession) models.PaymentStatus {
	pi := sess.PaymentIntent
	switch {
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return models.PaymentStatusExpired
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return models.PaymentStatusPaid
	case pi != nil && pi.Status == stripe.PaymentIntentStatusCanceled:
		return models.PaymentStatusCanceled
	case pi != nil && pi.LastPaymentError != nil:
		return models.PaymentStatusFailed
	case sess.Status == stripe.CheckoutSessionStatusComplete:
		return models.PaymentStatusPending
	default:
		return models.PaymentStatusOpen
	}
}

func metadataToMap(md models.PaymentMetadata) map[string]string {
	return map[string]string{
		"ticketType":    md.TicketType,
		"quantity":      strconv.Itoa(md.Quantity),
		"email":         md.Email,
		"name":          md.Name,
		"ticketName":    md.TicketName,
		"ticketPrice":   strconv.FormatFloat(md.TicketPrice, 'f', 2, 64),
		"serviceCharge": strconv.FormatFloat(md.ServiceCharge, 'f', 2, 64),
		"eventDate":     md.EventDate,
		"venue":         md.Venue,
	}
}

func metadataFromMap(m map[string]string) *models.PaymentMetadata {
	if len(m) == 0 {
		return nil
	}
	md := &models.PaymentMetadata{
		TicketType: m["ticketType"],
		Email:      m["email"],
		Name:       m["name"],
		TicketName: m["ticketName"],
		EventDate:  m["eventDate"],
		Venue:      m["venue"],
	}
	md.Quantity, _ = strconv.Atoi(m["quantity"])
	md.TicketPrice, _ = strconv.ParseFloat(m["ticketPrice"], 64)
	md.ServiceCharge, _ = strconv.ParseFloat(m["serviceCharge"], 64)
	return md
}
