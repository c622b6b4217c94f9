// middleware/sse_auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware reads the token from ?token= since EventSource cannot set headers.
//
// Usage:
//
//	app.Get("/user/events/stream", middleware.SSEAuthMiddleware(userService), userService.StreamActivitiesSSE)
func SSEAuthMiddleware(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			if h := c.Get("Authorization"); h != "" {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		return authenticate(c, users, token)
	}
}
