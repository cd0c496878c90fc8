package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// PaymentStatus is the lifecycle state reported by the gateway. The storefront
// only observes it.
type PaymentStatus string

const (
	PaymentStatusOpen       PaymentStatus = "open"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusExpired    PaymentStatus = "expired"
)

// IsTerminal reports whether the gateway will not move the payment further.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCanceled, PaymentStatusExpired:
		return true
	}
	return false
}

// IsUnsuccessful is true for the terminal states other than paid.
func (s PaymentStatus) IsUnsuccessful() bool {
	return s.IsTerminal() && s != PaymentStatusPaid
}

// PaymentMetadata travels with the payment at the gateway. There is no order
// table, so this is the order record used when the webhook arrives.
type PaymentMetadata struct {
	TicketType    string  `json:"ticketType"`
	Quantity      int     `json:"quantity"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	TicketName    string  `json:"ticketName"`
	TicketPrice   float64 `json:"ticketPrice"`
	ServiceCharge float64 `json:"serviceCharge"`
	EventDate     string  `json:"eventDate"`
	Venue         string  `json:"venue"`
}

// PaymentRequest is what the storefront asks the gateway to create.
type PaymentRequest struct {
	Amount      Money
	Description string
	RedirectURL string
	CancelURL   string
	WebhookURL  string
	Email       string
	Quote       Quote
	Metadata    PaymentMetadata
}

// Payment is the gateway's authoritative view of a payment.
type Payment struct {
	ID          string
	Status      PaymentStatus
	Amount      Amount
	Description string
	CheckoutURL string
	Metadata    *PaymentMetadata
}

// Quote is the outcome of pricing one order line.
type Quote struct {
	TicketType    TicketType
	Quantity      int
	UnitAmount    Money
	ServiceCharge Money
	Total         Money
}

// QuantityInput keeps the client's raw quantity so that "absent" and "not an
// integer" can be told apart. Numbers and numeric strings are both accepted.
type QuantityInput struct {
	raw string
	set bool
}

// NewQuantityInput builds an input from a raw textual value.
func NewQuantityInput(raw string) QuantityInput {
	raw = strings.TrimSpace(raw)
	return QuantityInput{raw: raw, set: raw != ""}
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *QuantityInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = QuantityInput{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = NewQuantityInput(s)
		return nil
	}
	*q = NewQuantityInput(string(b))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (q QuantityInput) MarshalJSON() ([]byte, error) {
	if !q.set {
		return []byte("null"), nil
	}
	if _, ok := q.Int(); ok {
		return []byte(q.raw), nil
	}
	return json.Marshal(q.raw)
}

// Present reports whether a non-empty value was supplied.
func (q QuantityInput) Present() bool {
	return q.set
}

// Int returns the value when it is a whole number.
func (q QuantityInput) Int() (int, bool) {
	if !q.set {
		return 0, false
	}
	f, err := strconv.ParseFloat(q.raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// CreatePaymentRequest is the body of POST /api/create-payment.
type CreatePaymentRequest struct {
	TicketType string        `json:"ticketType"`
	Quantity   QuantityInput `json:"quantity"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
}

// CreatePaymentResponse is returned once the hosted checkout exists.
type CreatePaymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
	Amount     string `json:"amount"`
}

// PaymentStatusResponse is returned by GET /api/check-payment/:id.
type PaymentStatusResponse struct {
	Status      PaymentStatus    `json:"status"`
	Amount      Amount           `json:"amount"`
	Description string           `json:"description"`
	Metadata    *PaymentMetadata `json:"metadata"`
}
