package handlers

import (
	"github.com/gofiber/fiber/v2"

	"career-quest/middleware"
	"career-quest/services"
)

// SetupCareerRoutes registers missions, job applications, notebook entries and
// learning resources. Each write commits first and then feeds the engine; the
// engine's outcome rides along under "gamification".
func SetupCareerRoutes(app *fiber.App, d *Deps) {
	auth := middleware.BearerAuth(d.Users)

	missions := app.Group("/missions", auth)

	missions.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateMissionInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		m, err := d.Missions.Create(middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	missions.Get("/", func(c *fiber.Ctx) error {
		list, err := d.Missions.List(middleware.UserID(c), c.Query("status"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	missions.Post("/:id/start", func(c *fiber.Ctx) error {
		m, err := d.Missions.Start(middleware.UserID(c), c.Params("id"), d.now())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(m)
	})

	missions.Post("/:id/complete", func(c *fiber.Ctx) error {
		var in services.CompleteMissionInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		userID, now := middleware.UserID(c), d.now()
		m, err := d.Missions.Complete(userID, c.Params("id"), in, now)
		if err != nil {
			return respondError(c, err)
		}
		out := d.Engine.Notify(c.UserContext(), services.Event{
			UserID: userID,
			Kind:   services.EventMissionCompleted,
			XP:     d.Weights.MissionXP(m.ActualMinutes),
			Source: "Completed mission: " + m.Title,
			RefID:  m.ID,
		})
		return c.JSON(fiber.Map{"mission": m, "gamification": out})
	})

	missions.Post("/:id/abandon", func(c *fiber.Ctx) error {
		userID, now := middleware.UserID(c), d.now()
		m, err := d.Missions.Abandon(userID, c.Params("id"), now)
		if err != nil {
			return respondError(c, err)
		}
		// no XP, but an abandon can change the consecutive focus challenge
		out := d.Engine.Notify(c.UserContext(), services.Event{
			UserID: userID,
			Kind:   services.EventMissionAbandoned,
			RefID:  m.ID,
		})
		return c.JSON(fiber.Map{"mission": m, "gamification": out})
	})

	apps := app.Group("/job-applications", auth)

	apps.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateApplicationInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		userID, now := middleware.UserID(c), d.now()
		ja, err := d.Applications.Create(userID, in, now)
		if err != nil {
			return respondError(c, err)
		}
		ev := services.Event{
			UserID: userID,
			Kind:   services.EventJobApplication,
			Source: "Tracked application: " + ja.Position + " at " + ja.Company,
			RefID:  ja.ID,
		}
		if ja.AppliedAt != nil {
			ev.XP = d.Weights.JobApplication
		}
		out := d.Engine.Notify(c.UserContext(), ev)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"application": ja, "gamification": out})
	})

	apps.Get("/", func(c *fiber.Ctx) error {
		list, err := d.Applications.List(middleware.UserID(c), c.Query("status"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	apps.Patch("/:id/status", func(c *fiber.Ctx) error {
		var in services.UpdateApplicationStatusInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		userID, now := middleware.UserID(c), d.now()
		before, err := d.Applications.Get(userID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ja, changed, err := d.Applications.UpdateStatus(userID, before.ID, in.Status, now)
		if err != nil {
			return respondError(c, err)
		}
		if !changed {
			return c.JSON(fiber.Map{"application": ja})
		}
		ev := services.Event{
			UserID: userID,
			Kind:   services.EventApplicationAdvanced,
			Source: ja.Company + ": " + string(ja.Status),
			RefID:  ja.ID,
		}
		// the first move out of WISHLIST earns what a direct application would have
		if before.AppliedAt == nil && ja.AppliedAt != nil {
			ev.XP = d.Weights.JobApplication
		}
		out := d.Engine.Notify(c.UserContext(), ev)
		return c.JSON(fiber.Map{"application": ja, "gamification": out})
	})

	notebook := app.Group("/notebook-entries", auth)

	notebook.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateNotebookEntryInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		userID := middleware.UserID(c)
		entry, err := d.Notebook.Create(userID, in)
		if err != nil {
			return respondError(c, err)
		}
		out := d.Engine.Notify(c.UserContext(), services.Event{
			UserID: userID,
			Kind:   services.EventNotebookEntry,
			XP:     d.Weights.NotebookEntry,
			Source: "Wrote notebook entry: " + entry.Title,
			RefID:  entry.ID,
		})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entry": entry, "gamification": out})
	})

	notebook.Get("/", func(c *fiber.Ctx) error {
		list, err := d.Notebook.List(middleware.UserID(c), c.QueryInt("limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	learning := app.Group("/learning", auth)

	learning.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateLearningInput
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
		lp, err := d.Learning.Create(middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(lp)
	})

	learning.Get("/", func(c *fiber.Ctx) error {
		list, err := d.Learning.List(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	learning.Post("/:id/complete", func(c *fiber.Ctx) error {
		userID, now := middleware.UserID(c), d.now()
		lp, err := d.Learning.Complete(userID, c.Params("id"), now)
		if err != nil {
			return respondError(c, err)
		}
		out := d.Engine.Notify(c.UserContext(), services.Event{
			UserID: userID,
			Kind:   services.EventLearningCompleted,
			XP:     d.Weights.LearningCompleted,
			Source: "Finished " + lp.ResourceTitle,
			RefID:  lp.ID,
		})
		return c.JSON(fiber.Map{"learning": lp, "gamification": out})
	})
}
