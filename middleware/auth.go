// middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"career-quest/logger"
	"career-quest/models"
	"career-quest/services"
)

// UserLookup resolves a bearer token (the user's id) to a user.
type UserLookup interface {
	Get(id string) (*models.User, error)
}

// BearerAuth accepts "Authorization: Bearer <userID>". The token is the user's
// row id; there is no signature or expiry.
func BearerAuth(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		return authenticate(c, users, token)
	}
}

func authenticate(c *fiber.Ctx, users UserLookup, token string) error {
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
	}

	user, err := users.Get(token)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Log.WithField("path", c.Path()).Debug("🚫 [AUTH] unknown token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		logger.Log.WithError(err).Error("❌ [AUTH] user lookup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	c.Locals("user_id", user.ID)
	c.Locals("user", user)
	return c.Next()
}

// UserID returns the id BearerAuth stored on the request.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
