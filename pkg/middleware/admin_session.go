package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	authentication "github.com/Alwanly/service-fleet-monitor/pkg/auth"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/wrapper"
)

const (
	SessionIDContextKey = "session_id"
	// HeaderAdminSession is an alternative to a Bearer Authorization header.
	HeaderAdminSession = "X-Admin-Session"
)

// SessionAuthorizer reports whether a session id is live.
type SessionAuthorizer interface {
	Authorize(sessionID string) bool
}

// SessionFromRequest reads the admin session id from the Authorization bearer, the
// X-Admin-Session header, or the session query parameter, in that order.
func SessionFromRequest(c *fiber.Ctx) string {
	if id := authentication.ParseBearer(c.Get(fiber.HeaderAuthorization)); id != "" {
		return id
	}
	if id := c.Get(HeaderAdminSession); id != "" {
		return id
	}
	return c.Query("session")
}

// AdminSession rejects requests without a live admin session and stores the session id
// in locals for the handler.
func AdminSession(sessions SessionAuthorizer, log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := SessionFromRequest(c)
		if !sessions.Authorize(id) {
			log.Debug("admin session rejected",
				logger.String("path", c.Path()),
				logger.String("ip", c.IP()),
				logger.Bool("present", id != ""),
			)
			res := wrapper.ResponseError(apperror.ErrAuth)
			return c.Status(res.Code).JSON(res.Data)
		}
		c.Locals(SessionIDContextKey, id)
		return c.Next()
	}
}
