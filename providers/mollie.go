package providers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yashrajoria/ticket-storefront/models"
)

const DefaultMollieBaseURL = "https://api.mollie.com/v2"

// MollieProvider implements Gateway using the Mollie payments API.
type MollieProvider struct {
	apiKey       string
	baseURL      string
	webhookToken string
	httpClient   *http.Client
	retry        retryPolicy
}

// MollieOptions configures a MollieProvider. Zero values fall back to defaults.
type MollieOptions struct {
	APIKey       string
	BaseURL      string
	WebhookToken string // optional shared secret appended to the webhook URL
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	HTTPClient   *http.Client
}

// NewMollieProvider creates a new MollieProvider.
func NewMollieProvider(opts MollieOptions) *MollieProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultMollieBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &MollieProvider{
		apiKey:       opts.APIKey,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		webhookToken: opts.WebhookToken,
		httpClient:   hc,
		retry:        newRetryPolicy(opts.MaxRetries, opts.RetryDelay),
	}
}

// ---- Mollie API request/response structs ----

type mollieCreatePayment struct {
	Amount      models.Amount          `json:"amount"`
	Description string                 `json:"description"`
	RedirectURL string                 `json:"redirectUrl"`
	CancelURL   string                 `json:"cancelUrl,omitempty"`
	WebhookURL  string                 `json:"webhookUrl,omitempty"`
	Metadata    models.PaymentMetadata `json:"metadata"`
}

type mollieLink struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type molliePayment struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Amount      models.Amount   `json:"amount"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	Links       struct {
		Checkout *mollieLink `json:"checkout"`
	} `json:"_links"`
}

type mollieError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("mollie API error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("mollie API error (status %d): %s", e.StatusCode, e.Title)
}

// ---- Gateway implementation ----

// Name implements PaymentProvider.
func (m *MollieProvider) Name() string { return "mollie" }

// CreatePayment creates a Mollie payment and returns its hosted checkout URL.
// Only rate-limited attempts are retried, since any other failure may have
// created the payment already.
func (m *MollieProvider) CreatePayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	body := mollieCreatePayment{
		Amount:      req.Amount.ToAmount(),
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		CancelURL:   req.CancelURL,
		WebhookURL:  m.signedWebhookURL(req.WebhookURL),
		Metadata:    req.Metadata,
	}

	var resp molliePayment
	err := m.retry.do(ctx, func() (bool, error) {
		err := m.doRequest(ctx, http.MethodPost, "/payments", body, &resp)
		return isRateLimited(err), err
	})
	if err != nil {
		return nil, fmt.Errorf("mollie CreatePayment: %w", err)
	}

	p := resp.toPayment()
	if p.CheckoutURL == "" {
		return nil, fmt.Errorf("mollie CreatePayment: payment %s has no checkout link", resp.ID)
	}
	return p, nil
}

// GetPayment retrieves a Mollie payment by id.
func (m *MollieProvider) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	if id == "" {
		return nil, ErrMissingPaymentID
	}

	var resp molliePayment
	path := "/payments/" + url.PathEscape(id)
	err := m.retry.do(ctx, func() (bool, error) {
		err := m.doRequest(ctx, http.MethodGet, path, nil, &resp)
		return isTransient(err), err
	})
	if err != nil {
		return nil, fmt.Errorf("mollie GetPayment: %w", err)
	}
	return resp.toPayment(), nil
}

// ParseNotification reads the payment id Mollie posts to the webhook, either
// form-encoded (what Mollie sends) or as JSON.
func (m *MollieProvider) ParseNotification(r *http.Request) (string, error) {
	if m.webhookToken != "" {
		got := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.webhookToken)) != 1 {
			return "", ErrInvalidNotification
		}
	}

	var id string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %v", ErrInvalidNotification, err)
		}
		id = body.ID
	} else {
		if err := r.ParseForm(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidNotification, err)
		}
		id = r.PostForm.Get("id")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingPaymentID
	}
	return id, nil
}

func (m *MollieProvider) signedWebhookURL(raw string) string {
	if raw == "" || m.webhookToken == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("token", m.webhookToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// ---- HTTP helper ----

func (m *MollieProvider) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		var me mollieError
		if json.Unmarshal(respBytes, &me) == nil && (me.Detail != "" || me.Title != "") {
			apiErr.Title = me.Title
			apiErr.Detail = me.Detail
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ---- Conversion helpers ----

func (p molliePayment) toPayment() *models.Payment {
	out := &models.Payment{
		ID:          p.ID,
		Status:      models.PaymentStatus(p.Status),
		Amount:      p.Amount,
		Description: p.Description,
	}
	if p.Links.Checkout != nil {
		out.CheckoutURL = p.Links.Checkout.Href
	}
	if len(p.Metadata) > 0 && string(p.Metadata) != "null" {
		var md models.PaymentMetadata
		if err := json.Unmarshal(p.Metadata, &md); err == nil {
			out.Metadata = &md
		}
	}
	return out
}

func isRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// isTransient is true for network failures, 429 and 5xx answers.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
