package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-ID"

// GinMiddleware logs one record per request with status and latency.
func GinMiddleware(logger *Logger) gin.HandlerFunc {
	httpLogger := logger.WithComponent(ComponentHTTP)
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(FieldRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			FieldRequestID, requestID,
			FieldMethod, c.Request.Method,
			FieldPath, c.FullPath(),
			FieldStatusCode, status,
			FieldDuration, time.Since(start).Milliseconds(),
			FieldClientIP, c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, FieldError, c.Errors.String())
		}
		switch {
		case status >= 500:
			httpLogger.ErrorContext(c.Request.Context(), "request failed", args...)
		case status >= 400:
			httpLogger.WarnContext(c.Request.Context(), "request rejected", args...)
		default:
			httpLogger.InfoContext(c.Request.Context(), "request", args...)
		}
	}
}
