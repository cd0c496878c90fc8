package routes

import (
	"context"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apperrors "github.com/yashrajoria/ticket-storefront/common/errors"
	"github.com/yashrajoria/ticket-storefront/common/middleware"
	"github.com/yashrajoria/ticket-storefront/controllers"
	aws_pkg "github.com/yashrajoria/ticket-storefront/pkg/aws"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// Options configures the router.
type Options struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	CloudWatch     *aws_pkg.MetricsClient
	Assets         fs.FS
}

// NewRouter builds the gin engine with middleware, API routes and the
// static UI.
func NewRouter(pc *controllers.PaymentController, tc *controllers.TicketController, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(apperrors.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigins))
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.MetricsMiddleware(opts.CloudWatch, "ticket-storefront"))
	r.Use(apperrors.ErrorMiddleware())

	// Bound every request; gateway calls inherit this deadline.
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", tc.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterPaymentRoutes(r, pc, tc, opts.RateLimiter)

	if opts.Assets != nil {
		RegisterStatic(r, opts.Assets)
	}
	return r
}

// RegisterPaymentRoutes mounts the JSON API under /api.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, tc *controllers.TicketController, limiter *middleware.RateLimiter) {
	api := r.Group("/api")
	api.Use(middleware.NoCache())

	api.GET("/tickets", tc.ListTickets)
	api.POST("/create-payment", middleware.RateLimitMiddleware(limiter), pc.CreatePayment)
	api.GET("/check-payment/:id", pc.CheckPayment)

	// Gateway callbacks are not rate limited.
	api.POST("/webhook", pc.Webhook)
}

var staticExtensions = map[string]bool{".html": true, ".css": true, ".js": true}

// RegisterStatic serves the UI. Unmatched GET paths serve the named asset
// when it exists and has a static extension, and index.html otherwise.
// Unknown /api paths get a JSON 404.
func RegisterStatic(r *gin.Engine, assets fs.FS) {
	r.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || p == "/api" ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			notFound := apperrors.NotFound()
			c.JSON(notFound.Code, notFound.Body())
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+p), "/")
		if !staticExtensions[path.Ext(name)] || !exists(assets, name) {
			name = "index.html"
		}
		serveAsset(c, assets, name)
	})
}

func exists(assets fs.FS, name string) bool {
	info, err := fs.Stat(assets, name)
	return err == nil && !info.IsDir()
}

func serveAsset(c *gin.Context, assets fs.FS, name string) {
	data, err := fs.ReadFile(assets, name)
	if err != nil {
		_ = c.Error(apperrors.New(http.StatusNotFound, "Not found", err))
		return
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}
