package middleware

import (
	"time"

	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const LogContextKey = "log_context"

// CanonicalLoggerMiddleware emits one log line per request carrying every field that
// handlers and usecases attached through logger.AddToContext.
func CanonicalLoggerMiddleware(log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logCtx := logger.NewLogContext()
		c.Locals(LogContextKey, logCtx)

		userCtx := logger.WithLogContext(c.UserContext(), logCtx)

		// set by the requestid middleware
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			logCtx.AddField(zap.String(logger.FieldRequestID, id))
			userCtx = logger.WithCorrelationID(userCtx, id)
		}
		c.SetUserContext(userCtx)

		start := time.Now()

		defer func() {
			duration := time.Since(start)
			status := c.Response().StatusCode()

			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Int("status", status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			}
			if _, ok := c.Locals(SessionIDContextKey).(string); ok {
				fields = append(fields, zap.String("caller", "admin"))
			}
			fields = append(fields, logCtx.Fields()...)

			switch {
			case status >= 500:
				log.Error("http_request", fields...)
			case status >= 400:
				log.Info("http_request_client_error", fields...)
			default:
				log.Debug("http_request", fields...)
			}
		}()

		return c.Next()
	}
}
