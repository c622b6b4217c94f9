package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"career-quest/services"
)

// RequestMetrics records count and latency per route pattern.
func RequestMetrics(m *services.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		// the route pattern keeps label cardinality bounded
		m.ObserveRequest(c.Route().Path, c.Method(), status, time.Since(start))
		return err
	}
}
