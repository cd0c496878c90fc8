package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/ticket-storefront/models"
)

func newTestMollie(t *testing.T, handler http.HandlerFunc, token string) *MollieProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMollieProvider(MollieOptions{
		APIKey:       "test_key",
		BaseURL:      srv.URL,
		WebhookToken: token,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
	})
}

func samplePaymentRequest() models.PaymentRequest {
	return models.PaymentRequest{
		Amount:      16590,
		Description: "YE GelreDome 2026 - Rang 2 x2",
		RedirectURL: "https://tickets.example/success.html",
		WebhookURL:  "https://tickets.example/api/webhook",
		Metadata: models.PaymentMetadata{
			TicketType: "brons",
			Quantity:   2,
			Email:      "jan@example.com",
			Name:       "Jan",
			TicketName: "Rang 2",
		},
	}
}

const paymentJSON = `{
	"id": "tr_test",
	"status": "open",
	"amount": {"currency": "EUR", "value": "165.90"},
	"description": "YE GelreDome 2026 - Rang 2 x2",
	"metadata": {"ticketType": "brons", "quantity": 2, "email": "jan@example.com", "name": "Jan", "ticketName": "Rang 2"},
	"_links": {"checkout": {"href": "https://www.mollie.com/checkout/tr_test", "type": "text/html"}}
}`

func TestMollie_CreatePayment(t *testing.T) {
	var got mollieCreatePayment
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer test_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(paymentJSON))
	}, "")

	p, err := m.CreatePayment(context.Background(), samplePaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "tr_test", p.ID)
	assert.Equal(t, "https://www.mollie.com/checkout/tr_test", p.CheckoutURL)
	assert.Equal(t, models.PaymentStatusOpen, p.Status)

	assert.Equal(t, models.Amount{Currency: "EUR", Value: "165.90"}, got.Amount)
	assert.Equal(t, "https://tickets.example/api/webhook", got.WebhookURL)
	assert.Equal(t, "brons", got.Metadata.TicketType)
}

func TestMollie_CreatePayment_NoRetryOnValidationError(t *testing.T) {
	var calls int32
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":422,"title":"Unprocessable Entity","detail":"The amount is lower than the minimum"}`))
	}, "")

	_, err := m.CreatePayment(context.Background(), samplePaymentRequest())
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "lower than the minimum")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMollie_CreatePayment_NoRetryOnServerError(t *testing.T) {
	var calls int32
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, "")

	_, err := m.CreatePayment(context.Background(), samplePaymentRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a create may have gone through, so 5xx is not retried")
}

func TestMollie_CreatePayment_RetriesRateLimit(t *testing.T) {
	var calls int32
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(paymentJSON))
	}, "")

	p, err := m.CreatePayment(context.Background(), samplePaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "tr_test", p.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMollie_CreatePayment_MissingCheckoutLink(t *testing.T) {
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tr_test","status":"open"}`))
	}, "")

	_, err := m.CreatePayment(context.Background(), samplePaymentRequest())
	assert.ErrorContains(t, err, "no checkout link")
}

func TestMollie_CreatePayment_SignsWebhookURL(t *testing.T) {
	var got mollieCreatePayment
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(paymentJSON))
	}, "s3cret")

	_, err := m.CreatePayment(context.Background(), samplePaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://tickets.example/api/webhook?token=s3cret", got.WebhookURL)
}

func TestMollie_GetPayment(t *testing.T) {
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/tr_test", r.URL.Path)
		_, _ = w.Write([]byte(strings.Replace(paymentJSON, `"open"`, `"paid"`, 1)))
	}, "")

	p, err := m.GetPayment(context.Background(), "tr_test")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	assert.Equal(t, "165.90", p.Amount.Value)
	require.NotNil(t, p.Metadata)
	assert.Equal(t, 2, p.Metadata.Quantity)
	assert.Equal(t, "jan@example.com", p.Metadata.Email)
}

func TestMollie_GetPayment_RetriesTransient(t *testing.T) {
	var calls int32
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(paymentJSON))
	}, "")

	_, err := m.GetPayment(context.Background(), "tr_test")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMollie_GetPayment_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, "")

	_, err := m.GetPayment(context.Background(), "tr_test")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMollie_GetPayment_NotFoundNotRetried(t *testing.T) {
	var calls int32
	m := newTestMollie(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"title":"Not Found","detail":"No payment exists with token tr_nope."}`))
	}, "")

	_, err := m.GetPayment(context.Background(), "tr_nope")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMollie_GetPayment_EmptyID(t *testing.T) {
	m := NewMollieProvider(MollieOptions{APIKey: "test_key"})
	_, err := m.GetPayment(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingPaymentID)
}

func TestMollie_ParseNotification(t *testing.T) {
	m := NewMollieProvider(MollieOptions{APIKey: "test_key"})

	form := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(url.Values{"id": {"tr_form"}}.Encode()))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	id, err := m.ParseNotification(form)
	require.NoError(t, err)
	assert.Equal(t, "tr_form", id)

	js := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"id":"tr_json"}`))
	js.Header.Set("Content-Type", "application/json; charset=utf-8")
	id, err = m.ParseNotification(js)
	require.NoError(t, err)
	assert.Equal(t, "tr_json", id)

	empty := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{}`))
	empty.Header.Set("Content-Type", "application/json")
	_, err = m.ParseNotification(empty)
	assert.ErrorIs(t, err, ErrMissingPaymentID)

	bad := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"id":`))
	bad.Header.Set("Content-Type", "application/json")
	_, err = m.ParseNotification(bad)
	assert.ErrorIs(t, err, ErrInvalidNotification)
}

func TestMollie_ParseNotification_Token(t *testing.T) {
	m := NewMollieProvider(MollieOptions{APIKey: "test_key", WebhookToken: "s3cret"})

	newReq := func(target string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, target, strings.NewReader("id=tr_test"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return r
	}

	_, err := m.ParseNotification(newReq("/api/webhook"))
	assert.ErrorIs(t, err, ErrInvalidNotification)

	_, err = m.ParseNotification(newReq("/api/webhook?token=wrong"))
	assert.ErrorIs(t, err, ErrInvalidNotification)

	id, err := m.ParseNotification(newReq("/api/webhook?token=s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "tr_test", id)
}

func TestRetryPolicy_StopsOnContextCancel(t *testing.T) {
	p := newRetryPolicy(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := p.do(ctx, func() (bool, error) {
		calls++
		cancel()
		return true, errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
