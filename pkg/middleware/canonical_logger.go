package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftwatch/provision-relay/pkg/logger"
)

// CanonicalLoggerMiddleware emits one structured log line per request,
// carrying whatever fields handlers and usecases accumulated on the way.
func CanonicalLoggerMiddleware(log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logCtx := logger.NewLogContext()
		c.SetUserContext(logger.WithLogContext(c.UserContext(), logCtx))

		if reqID, ok := c.Locals("requestid").(string); ok {
			logCtx.AddField(zap.String(logger.FieldRequestID, reqID))
		}

		start := time.Now()

		// Deferred so the line is emitted even when a handler panics (the
		// recover middleware runs first).
		defer func() {
			duration := time.Since(start)
			status := c.Response().StatusCode()

			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String(logger.FieldSourceIP, c.IP()),
				zap.Int("status", status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			}
			fields = append(fields, logCtx.Fields()...)

			// Rate-limited requests get their own message so abuse shows up
			// in one log query.
			switch {
			case status >= 500:
				log.Error("http_request", fields...)
			case status == fiber.StatusTooManyRequests:
				log.Warn("http_request_rate_limited", fields...)
			case status >= 400:
				log.Info("http_request_client_error", fields...)
			default:
				log.Info("http_request", fields...)
			}
		}()

		return c.Next()
	}
}
