package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/ticket-storefront/common/logger"
	"github.com/yashrajoria/ticket-storefront/common/middleware"
	"github.com/yashrajoria/ticket-storefront/config"
	"github.com/yashrajoria/ticket-storefront/controllers"
	"github.com/yashrajoria/ticket-storefront/kafka"
	"github.com/yashrajoria/ticket-storefront/models"
	aws_pkg "github.com/yashrajoria/ticket-storefront/pkg/aws"
	"github.com/yashrajoria/ticket-storefront/providers"
	"github.com/yashrajoria/ticket-storefront/public"
	"github.com/yashrajoria/ticket-storefront/repository"
	"github.com/yashrajoria/ticket-storefront/routes"
	"github.com/yashrajoria/ticket-storefront/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "ticket-storefront"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	// --- CloudWatch logs (non-fatal) ---
	var cwLogs *aws_pkg.CloudWatchLogsClient
	if os.Getenv("CLOUDWATCH_ENABLED") == "true" {
		cwLogs, err = aws_pkg.NewCloudWatchLogsClient(ctx, serviceName)
		if err != nil {
			log.Printf("CloudWatch logs init failed (non-fatal): %v", err)
		}
	}

	var zapLogger *zap.Logger
	if cwLogs.IsEnabled() {
		zapLogger, err = logger.InitializeWithWriter(cfg.AppEnv, cwLogs)
	} else {
		zapLogger, err = logger.Initialize(cfg.AppEnv)
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer zapLogger.Sync()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Secrets ---
	if cfg.UseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			zapLogger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		if err := cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg)); err != nil {
			zapLogger.Fatal("Failed to load payment credentials from Secrets Manager", zap.Error(err))
		}
	}

	// --- Catalog ---
	var catalog *models.Catalog
	if cfg.CatalogFile != "" {
		catalog, err = config.LoadCatalog(cfg.CatalogFile, cfg.ServiceCharge)
		if err != nil {
			zapLogger.Fatal("Catalog load failed", zap.String("file", cfg.CatalogFile), zap.Error(err))
		}
	} else {
		catalog = config.DefaultCatalog(cfg.ServiceCharge)
	}

	// --- Payment gateway ---
	var gateway providers.Gateway
	switch cfg.PaymentProvider {
	case config.ProviderStripe:
		gateway = providers.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookKey, cfg.GatewayMaxRetries, zapLogger)
	default:
		gateway = providers.NewMollieProvider(providers.MollieOptions{
			APIKey:       cfg.MollieAPIKey,
			BaseURL:      cfg.MollieAPIURL,
			WebhookToken: cfg.WebhookToken,
			Timeout:      cfg.GatewayTimeout,
			MaxRetries:   cfg.GatewayMaxRetries,
		})
	}

	// --- Webhook dedup ---
	var dedup repository.DedupRepository
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zapLogger.Warn("Redis unavailable, using in-memory webhook dedup", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			dedup = repository.NewRedisDedupRepo(redisClient, cfg.DedupTTL)
		}
	}
	if dedup == nil {
		dedup = repository.NewMemoryDedupRepo(cfg.DedupTTL)
	}

	// --- Event bus ---
	var publisher services.EventPublisher
	var producer *kafka.PaymentEventProducer
	switch cfg.EventBus {
	case config.EventBusSNS:
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			zapLogger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		publisher = services.NewSNSEventPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.PaymentSNSTopicARN)
	case config.EventBusKafka:
		producer = kafka.NewPaymentEventProducer(cfg.KafkaBrokers, cfg.KafkaTopic, zapLogger)
		publisher = producer
	default:
		publisher = services.NewNoopPublisher()
	}

	// --- CloudWatch metrics (non-fatal) ---
	metricsClient, err := aws_pkg.NewMetricsClient(ctx)
	if err != nil {
		zapLogger.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
		metricsClient = nil
	}

	// --- Dependency injection ---
	paymentService := services.NewPaymentService(
		gateway,
		catalog,
		dedup,
		publisher,
		services.NewPaymentMetrics(metricsClient),
		services.EventInfo{Name: cfg.EventName, Date: cfg.EventDate, Venue: cfg.EventVenue},
		cfg.BaseURL,
		zapLogger,
	)
	paymentController := controllers.NewPaymentController(paymentService, gateway, zapLogger)
	ticketController := controllers.NewTicketController(catalog)

	limiter := middleware.NewPerMinuteRateLimiter(cfg.RateLimitPerMinute, 0)
	defer limiter.Stop()

	r := routes.NewRouter(paymentController, ticketController, routes.Options{
		Logger:         zapLogger,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    limiter,
		CloudWatch:     metricsClient,
		Assets:         public.Assets,
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		providerState := "✗ not configured"
		if cfg.ProviderConfigured() {
			providerState = "✓ configured"
		}
		zapLogger.Info("Ticket storefront started",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("base_url", cfg.BaseURL),
			zap.String("event", cfg.EventName),
			zap.String("provider", cfg.PaymentProvider),
			zap.String("provider_credentials", providerState),
			zap.String("event_bus", cfg.EventBus),
			zap.Int("ticket_types", catalog.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown error", zap.Error(err))
	}
	if producer != nil {
		producer.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Error("Redis close error", zap.Error(err))
		}
	}

	zapLogger.Info("Ticket storefront stopped gracefully")
}
