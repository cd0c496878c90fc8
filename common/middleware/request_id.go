package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/ticket-storefront/common/logger"
)

const (
	RequestIDKey    = logger.RequestIDKey
	RequestIDHeader = "X-Request-ID"
)

// RequestID propagates the caller's X-Request-ID or assigns a new UUID. The
// id is stored on the gin context and on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), rid))
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}
