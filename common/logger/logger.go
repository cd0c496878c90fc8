package logger

import (
	"context"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Initialize sets up the logger with the specified environment
func Initialize(env string) (*zap.Logger, error) {
	return InitializeWithWriter(env, nil)
}

// InitializeWithWriter sets up the logger and, when cloudWatchWriter is not
// nil, tees JSON output to it.
func InitializeWithWriter(env string, cloudWatchWriter io.Writer) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cloudWatchWriter == nil {
		return config.Build()
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), zapcore.Lock(os.Stdout), level)

	jsonConfig := config.EncoderConfig
	jsonConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cwCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.Lock(zapcore.AddSync(cloudWatchWriter)), level)

	return zap.New(zapcore.NewTee(consoleCore, cwCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// WithContext returns a context carrying the request id.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID extracts the request id from a request context or gin context.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if rid := ginCtx.GetString(RequestIDKey); rid != "" {
			return rid
		}
		if ginCtx.Request != nil {
			ctx = ginCtx.Request.Context()
		}
	}
	if rid, ok := ctx.Value(ctxKey{}).(string); ok && rid != "" {
		return rid
	}
	return "unknown"
}
