package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error represents an application error rendered as
// {"error": Message, "message": <cause>}.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Body is the JSON response for the error.
func (e *Error) Body() gin.H {
	body := gin.H{"error": e.Message}
	if e.Err != nil {
		body["message"] = e.Err.Error()
	}
	return body
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Internal wraps err as a generic 500.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// NotFound is returned for unknown API routes.
func NotFound() *Error {
	return New(http.StatusNotFound, "Not found", nil)
}

// ErrorMiddleware renders the last error attached with c.Error when the
// handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		var appErr *Error
		if !stderrors.As(err, &appErr) {
			appErr = Internal(err)
		}
		c.AbortWithStatusJSON(appErr.Code, appErr.Body())
	}
}

// Recovery turns a panic in a handler into a 500 JSON response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}
		logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		appErr := Internal(err)
		c.AbortWithStatusJSON(appErr.Code, appErr.Body())
	})
}
