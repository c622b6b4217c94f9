package handlers

import (
	"github.com/gofiber/fiber/v2"

	"career-quest/middleware"
	"career-quest/models"
	"career-quest/services"
)

type achievementView struct {
	models.Achievement
	CategoryLabel string `json:"category_label"`
}

// SetupUserRoutes registers sign-up, the public catalog and the /user area.
func SetupUserRoutes(app *fiber.App, d *Deps) {
	app.Post("/users", func(c *fiber.Ctx) error {
		var in services.RegisterInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		user, err := d.Users.Register(in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	app.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := d.Achievements.Catalog(c.Query("category"))
		if err != nil {
			return respondError(c, err)
		}
		views := make([]achievementView, 0, len(list))
		for _, a := range list {
			views = append(views, achievementView{Achievement: a, CategoryLabel: services.CategoryLabel(a.Category)})
		}
		return c.JSON(views)
	})

	// registered ahead of the bearer group: EventSource cannot send headers
	app.Get("/user/events/stream", middleware.SSEAuthMiddleware(d.Users), d.Users.StreamActivitiesSSE)

	user := app.Group("/user", middleware.BearerAuth(d.Users))

	user.Get("/progress", func(c *fiber.Ctx) error {
		view, err := d.Users.Progress(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	})

	user.Post("/progress/reset", func(c *fiber.Ctx) error {
		u, err := d.Users.ResetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(u)
	})

	user.Patch("/timezone", func(c *fiber.Ctx) error {
		var in struct {
			Timezone string `json:"timezone" validate:"required,timezone"`
		}
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		u, err := d.Users.SetTimezone(c.UserContext(), middleware.UserID(c), in.Timezone)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(u)
	})

	user.Delete("/", func(c *fiber.Ctx) error {
		if err := d.Users.Delete(c.UserContext(), middleware.UserID(c)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": true})
	})

	user.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := d.Achievements.Unlocked(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	user.Post("/achievements/check", func(c *fiber.Ctx) error {
		out, err := d.Engine.CheckAchievements(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	user.Get("/daily-challenge", func(c *fiber.Ctx) error {
		res, effects, err := d.Engine.UpdateDailyChallenge(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		if res == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "daily challenge unavailable",
				"effects": effects,
			})
		}
		return c.JSON(res)
	})

	user.Get("/activities", func(c *fiber.Ctx) error {
		list, err := d.Users.Activities(middleware.UserID(c), c.QueryInt("limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})
}
