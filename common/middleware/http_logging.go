package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger emits one structured log line per HTTP request. Health and
// metrics probes are logged at debug level.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.RawQuery)
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if rid := c.GetString(RequestIDKey); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		case path == "/health" || path == "/metrics":
			logger.Debug("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

// redactedParams are query parameters that carry shared secrets, such as the
// webhook token appended to gateway callback URLs.
var redactedParams = []string{"token"}

func redactQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable]"
	}
	changed := false
	for _, p := range redactedParams {
		if _, ok := values[p]; ok {
			values.Set(p, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return values.Encode()
}
