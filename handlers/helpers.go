package handlers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"career-quest/gamification"
	"career-quest/logger"
	"career-quest/services"
	"career-quest/utils"
)

// IconStore uploads badge icons. Nil when object storage is not configured.
type IconStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Deps is everything the route handlers need.
type Deps struct {
	Users        *services.UserService
	Achievements *services.AchievementService
	Missions     *services.MissionService
	Applications *services.JobApplicationService
	Notebook     *services.NotebookService
	Learning     *services.LearningService
	Engine       *services.Engine
	Icons        IconStore
	AdminToken   string
	Weights      gamification.XPWeights
	Now          func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// parseBody decodes and validates a JSON body. It writes the 400 response itself
// and returns false when the request should stop.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}
	if err := utils.GetValidator().Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation failed",
			"details": utils.FormatValidationErrors(err),
		})
	}
	return true, nil
}

// respondError maps service errors onto status codes.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrDuplicateEmail):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrStorageDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	logger.Log.WithError(err).WithField("path", c.Path()).Error("❌ request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
