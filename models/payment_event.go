package models

import "time"

// PaymentEvent is published when a payment reaches a terminal state.
type PaymentEvent struct {
	Type       string    `json:"type"` // "payment_succeeded" or "payment_failed"
	PaymentID  string    `json:"payment_id"`
	Status     string    `json:"status"`
	Provider   string    `json:"provider"`
	TicketType string    `json:"ticket_type"`
	TicketName string    `json:"ticket_name"`
	Quantity   int       `json:"quantity"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)
