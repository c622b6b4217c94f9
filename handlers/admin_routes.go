package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"career-quest/logger"
	"career-quest/middleware"
	"career-quest/services"
	"career-quest/utils"
)

type grantXPInput struct {
	UserID string `json:"user_id" validate:"required"`
	XP     int64  `json:"xp" validate:"required,gt=0,lte=100000"`
	Reason string `json:"reason" validate:"max=200"`
}

// SetupAdminRoutes registers operator endpoints behind X-Admin-Token.
func SetupAdminRoutes(app *fiber.App, d *Deps) {
	admin := app.Group("/admin", middleware.AdminToken(d.AdminToken))

	admin.Post("/achievements/:id/icon", func(c *fiber.Ctx) error {
		if d.Icons == nil {
			return respondError(c, services.ErrStorageDisabled)
		}
		fh, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
		}
		body, contentType, err := utils.OpenMultipart(fh)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		defer body.Close()
		if !strings.HasPrefix(contentType, "image/") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon must be an image"})
		}

		id := c.Params("id")
		key := fmt.Sprintf("achievements/%s-%s%s", slug.Make(id), uuid.NewString()[:8], strings.ToLower(filepath.Ext(fh.Filename)))
		url, err := d.Icons.Upload(c.UserContext(), key, contentType, body)
		if err != nil {
			logger.Log.WithError(err).WithField("achievement_id", id).Error("❌ icon upload failed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "icon upload failed"})
		}
		a, err := d.Achievements.SetIcon(id, url)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(a)
	})

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var in grantXPInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		source := in.Reason
		if source == "" {
			source = "XP granted"
		}
		out, err := d.Engine.Apply(c.UserContext(), services.Event{
			UserID: in.UserID,
			Kind:   services.EventXPGrant,
			XP:     in.XP,
			Source: source,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})
}
