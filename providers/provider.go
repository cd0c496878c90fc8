package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/yashrajoria/ticket-storefront/models"
)

// PaymentProvider defines the interface all payment gateway integrations must implement.
type PaymentProvider interface {
	// Name identifies the gateway in logs and published events.
	Name() string

	// CreatePayment opens a hosted checkout for the request.
	CreatePayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error)

	// GetPayment fetches the authoritative state of a payment.
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
}

// NotificationParser extracts the payment id from an incoming webhook call.
type NotificationParser interface {
	ParseNotification(r *http.Request) (string, error)
}

// Gateway is a provider that also receives webhooks.
type Gateway interface {
	PaymentProvider
	NotificationParser
}

var (
	// ErrMissingPaymentID is returned when a notification carries no id.
	ErrMissingPaymentID = errors.New("payment id missing from notification")

	// ErrInvalidNotification is returned when a notification fails verification.
	ErrInvalidNotification = errors.New("invalid webhook notification")

	// ErrEventIgnored marks well-formed notifications that concern no payment
	// this service tracks. They are acknowledged without further work.
	ErrEventIgnored = errors.New("webhook event ignored")
)
