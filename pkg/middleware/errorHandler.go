package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/wrapper"
)

// ErrorHandler renders faults that escaped a handler as `{error: kind}`.
func ErrorHandler(log *logger.CanonicalLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		log.HTTPError(c.Method(), c.Path(), code, err)

		return c.Status(code).JSON(wrapper.ErrorBody{Error: kindForStatus(code)})
	}
}

func kindForStatus(code int) string {
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return "invalid_request"
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		return "unauthorized"
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return "not_found"
	case fiber.StatusUpgradeRequired:
		return "upgrade_required"
	default:
		return "internal_error"
	}
}
