package services

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"career-quest/logger"
	"career-quest/models"
)

// StreamPollInterval is how often the SSE stream looks for new activity rows.
var StreamPollInterval = 2 * time.Second

// StreamActivitiesSSE pushes new activity rows (unlocks, completions, level ups)
// for the authenticated user.
func (s *UserService) StreamActivitiesSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		log := logger.ForUser(userID)
		ticker := time.NewTicker(StreamPollInterval)
		defer ticker.Stop()

		var cursor time.Time
		var latest models.Activity
		if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").First(&latest).Error; err == nil {
			cursor = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Warn("SSE init error")
		}

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				var rows []models.Activity
				err := s.DB.Where("user_id = ? AND created_at > ?", userID, cursor).
					Order("created_at ASC").
					Find(&rows).Error
				if err != nil {
					log.WithError(err).Warn("SSE query error")
					continue
				}
				if len(rows) == 0 {
					// keepalive so proxies do not drop an idle stream
					w.WriteString(":\n\n")
				}
				for _, a := range rows {
					payload, err := sonic.Marshal(a)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", a.ID, a.Type, payload)
				}
				if len(rows) > 0 {
					cursor = rows[len(rows)-1].CreatedAt
				}

				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}

			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}
