package logger

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequestID(t *testing.T) {
	assert.Equal(t, "unknown", RequestID(context.Background()))

	ctx := WithContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil).WithContext(WithContext(context.Background(), "req-2"))
	assert.Equal(t, "req-2", RequestID(c))

	c.Set(RequestIDKey, "req-3")
	assert.Equal(t, "req-3", RequestID(c))
}

func TestInitializeWithWriter_TeesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := InitializeWithWriter("production", &buf)
	require.NoError(t, err)

	ctx := WithContext(context.Background(), "req-9")
	l.Info("hello", zap.String(RequestIDKey, RequestID(ctx)))
	_ = l.Sync()

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"request_id":"req-9"`)
	assert.Contains(t, buf.String(), `"timestamp"`)
}
