// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hysio/scribe-audio/pkg/logger"
)

const loggerKey = "request_logger"

// RequestLogger assigns each request a uuid, echoes it in the X-Request-ID
// header, and stores a request-scoped logger carrying the id so handlers
// and the pipeline log under the same "rid". A completion line with status
// and latency is written when the handler chain returns.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		reqLogger := logger.L().With("rid", reqID)
		c.Set(loggerKey, reqLogger)

		c.Next()

		reqLogger.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// FromContext returns the request-scoped logger set by RequestLogger, or
// the global logger when the middleware did not run (tests, internal use).
func FromContext(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return logger.L()
}
