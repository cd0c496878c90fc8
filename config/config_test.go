package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/ticket-storefront/models"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("MOLLIE_API_KEY", "test_abc")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, ProviderMollie, cfg.PaymentProvider)
	assert.Equal(t, models.Money(395), cfg.ServiceCharge)
	assert.Equal(t, 15*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 2, cfg.GatewayMaxRetries)
	assert.Equal(t, EventBusNone, cfg.EventBus)
	assert.Equal(t, "2026-06-06", cfg.EventDate)
	assert.True(t, cfg.ProviderConfigured())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "Stripe")
	t.Setenv("STRIPE_API_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("BASE_URL", "https://tickets.example/")
	t.Setenv("SERVICE_CHARGE", "2.50")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("EVENT_BUS", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, cfg.PaymentProvider)
	assert.Equal(t, "https://tickets.example", cfg.BaseURL)
	assert.Equal(t, models.Money(250), cfg.ServiceCharge)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromEnv_MissingProviderKey(t *testing.T) {
	t.Setenv("MOLLIE_API_KEY", "")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "MOLLIE_API_KEY")

	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_API_KEY", "sk_test")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "STRIPE_WEBHOOK_SECRET")

	t.Setenv("PAYMENT_PROVIDER", "paypal")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "unknown PAYMENT_PROVIDER")
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("MOLLIE_API_KEY", "test_abc")

	t.Setenv("SERVICE_CHARGE", "-1")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "SERVICE_CHARGE")

	t.Setenv("SERVICE_CHARGE", "3.95")
	t.Setenv("GATEWAY_MAX_RETRIES", "many")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "GATEWAY_MAX_RETRIES")

	t.Setenv("GATEWAY_MAX_RETRIES", "1")
	t.Setenv("EVENT_BUS", "sns")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "PAYMENT_SNS_TOPIC_ARN")
}

type fakeSecrets struct {
	values map[string]string
	err    error
}

func (f fakeSecrets) GetSecretMap(context.Context, string) (map[string]string, error) {
	return f.values, f.err
}

func TestApplySecrets(t *testing.T) {
	t.Setenv("AWS_USE_SECRETS", "true")
	t.Setenv("MOLLIE_API_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err, "validation waits for secrets")
	assert.False(t, cfg.ProviderConfigured())

	require.NoError(t, cfg.ApplySecrets(context.Background(), fakeSecrets{values: map[string]string{
		"MOLLIE_API_KEY": "live_abc",
		"WEBHOOK_TOKEN":  "tok",
	}}))
	assert.Equal(t, "live_abc", cfg.MollieAPIKey)
	assert.Equal(t, "tok", cfg.WebhookToken)

	err = cfg.ApplySecrets(context.Background(), fakeSecrets{err: errors.New("access denied")})
	assert.EqualError(t, err, "access denied")
}
