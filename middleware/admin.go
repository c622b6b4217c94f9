package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"career-quest/logger"
)

// AdminToken guards /admin routes with a static X-Admin-Token. An empty
// expected token disables the routes entirely.
func AdminToken(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Admin-Token")
		if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			logger.Log.WithField("path", c.Path()).Warn("🚫 [ADMIN] rejected admin request")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}
		return c.Next()
	}
}
