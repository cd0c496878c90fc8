package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/ticket-storefront/models"
)

const (
	ProviderMollie = "mollie"
	ProviderStripe = "stripe"

	EventBusNone  = "none"
	EventBusSNS   = "sns"
	EventBusKafka = "kafka"

	DefaultSecretName = "ticket-storefront/PAYMENT_CREDENTIALS"
)

type Config struct {
	Port    string
	AppEnv  string
	BaseURL string

	PaymentProvider  string
	MollieAPIKey     string
	MollieAPIURL     string
	StripeSecretKey  string
	StripeWebhookKey string
	WebhookToken     string

	GatewayTimeout    time.Duration
	GatewayMaxRetries int

	ServiceCharge models.Money
	CatalogFile   string
	EventName     string
	EventDate     string
	EventVenue    string

	EventBus           string
	PaymentSNSTopicARN string
	KafkaBrokers       []string
	KafkaTopic         string

	RedisURL string
	DedupTTL time.Duration

	AllowedOrigins     []string
	RateLimitPerMinute int

	UseSecrets bool
	SecretName string
}

// SecretSource fetches a JSON secret of string values by name.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from the environment, after loading a
// .env file when one is present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads and validates configuration from the process environment.
func FromEnv() (*Config, error) {
	port := getEnv("PORT", "3000")
	cfg := &Config{
		Port:               port,
		AppEnv:             getEnv("APP_ENV", "development"),
		BaseURL:            strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		PaymentProvider:    strings.ToLower(getEnv("PAYMENT_PROVIDER", ProviderMollie)),
		MollieAPIKey:       os.Getenv("MOLLIE_API_KEY"),
		MollieAPIURL:       os.Getenv("MOLLIE_API_URL"),
		StripeSecretKey:    os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		WebhookToken:       os.Getenv("WEBHOOK_TOKEN"),
		CatalogFile:        os.Getenv("CATALOG_FILE"),
		EventName:          getEnv("EVENT_NAME", "YE GelreDome 2026"),
		EventDate:          getEnv("EVENT_DATE", "2026-06-06"),
		EventVenue:         getEnv("EVENT_VENUE", "GelreDome Arnhem"),
		EventBus:           strings.ToLower(getEnv("EVENT_BUS", EventBusNone)),
		PaymentSNSTopicARN: os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "ticket-payment-events"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		UseSecrets:         os.Getenv("AWS_USE_SECRETS") == "true",
		SecretName:         getEnv("AWS_SECRET_NAME", DefaultSecretName),
	}

	var err error
	if cfg.ServiceCharge, err = models.ParseMoney(getEnv("SERVICE_CHARGE", "3.95")); err != nil {
		return nil, fmt.Errorf("SERVICE_CHARGE: %w", err)
	}
	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.DedupTTL, err = getDuration("DEDUP_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.GatewayMaxRetries, err = getInt("GATEWAY_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}

	if !cfg.UseSecrets {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ApplySecrets overrides gateway credentials with the values stored in the
// configured secret, then validates the result.
func (c *Config) ApplySecrets(ctx context.Context, src SecretSource) error {
	values, err := src.GetSecretMap(ctx, c.SecretName)
	if err != nil {
		return err
	}
	override := func(dst *string, key string) {
		if v := values[key]; v != "" {
			*dst = v
		}
	}
	override(&c.MollieAPIKey, "MOLLIE_API_KEY")
	override(&c.StripeSecretKey, "STRIPE_API_KEY")
	override(&c.StripeWebhookKey, "STRIPE_WEBHOOK_SECRET")
	override(&c.WebhookToken, "WEBHOOK_TOKEN")
	return c.Validate()
}

// Validate checks that the selected provider and event bus are usable.
func (c *Config) Validate() error {
	switch c.PaymentProvider {
	case ProviderMollie:
		if c.MollieAPIKey == "" {
			return fmt.Errorf("missing required environment variable MOLLIE_API_KEY")
		}
	case ProviderStripe:
		if c.StripeSecretKey == "" || c.StripeWebhookKey == "" {
			return fmt.Errorf("missing required environment variables STRIPE_API_KEY and STRIPE_WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q (want %s or %s)", c.PaymentProvider, ProviderMollie, ProviderStripe)
	}

	switch c.EventBus {
	case EventBusNone:
	case EventBusSNS:
		if c.PaymentSNSTopicARN == "" {
			return fmt.Errorf("EVENT_BUS=sns requires PAYMENT_SNS_TOPIC_ARN")
		}
	case EventBusKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("EVENT_BUS=kafka requires KAFKA_BROKERS and KAFKA_TOPIC")
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS %q", c.EventBus)
	}
	return nil
}

// ProviderConfigured reports whether credentials for the selected provider
// are present; used in the startup banner.
func (c *Config) ProviderConfigured() bool {
	if c.PaymentProvider == ProviderStripe {
		return c.StripeSecretKey != "" && c.StripeWebhookKey != ""
	}
	return c.MollieAPIKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
