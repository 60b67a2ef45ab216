package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	authentication "github.com/Alwanly/service-fleet-monitor/pkg/auth"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/wrapper"
)

const (
	AgentSecretContextKey = "agent_secret"
	TokenNameContextKey   = "token_name"
)

// TokenLookup resolves an agent secret to its token name.
type TokenLookup interface {
	Lookup(secret string) (string, bool)
}

// AgentTokenFromRequest reads the agent secret from the Authorization bearer or the token
// query parameter.
func AgentTokenFromRequest(c *fiber.Ctx) string {
	if secret := authentication.ParseBearer(c.Get(fiber.HeaderAuthorization)); secret != "" {
		return secret
	}
	return c.Query("token")
}

// AgentTokenAuth rejects requests whose bearer secret is not a currently issued token.
func AgentTokenAuth(tokens TokenLookup, log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := AgentTokenFromRequest(c)
		name, ok := tokens.Lookup(secret)
		if !ok {
			log.Debug("agent token rejected",
				logger.String("path", c.Path()),
				logger.String("ip", c.IP()),
				logger.Bool("present", secret != ""),
			)
			res := wrapper.ResponseError(apperror.ErrAuth)
			return c.Status(res.Code).JSON(res.Data)
		}

		c.Locals(AgentSecretContextKey, secret)
		c.Locals(TokenNameContextKey, name)
		logger.AddToContext(c.UserContext(), logger.String(logger.FieldTokenName, name))
		return c.Next()
	}
}
