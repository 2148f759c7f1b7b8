package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/hdstore/internal/config"
	"github.com/example/hdstore/internal/utils"
)

const customerContextKey = "currentCustomerID"

// AuthMiddleware validates bearer tokens and loads the authenticated
// customer ID into the request context. It accepts the token from the
// Authorization header or, failing that, the session cookie.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			token = c.Cookies("token")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization token")
		}

		customerID, err := utils.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(customerContextKey, customerID)
		return c.Next()
	}
}

// GetCurrentCustomerID extracts the authenticated customer ID from context.
func GetCurrentCustomerID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(customerContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
