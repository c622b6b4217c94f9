// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"career-quest/logger"
)

// StartChallengeScheduler makes sure today's and tomorrow's daily challenge
// exist, then repeats that every day at 00:05 UTC.
func (s *DailyChallengeService) StartChallengeScheduler(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	task := func() {
		if err := s.EnsureUpcoming(ctx, time.Now().UTC()); err != nil {
			logger.Log.WithError(err).Error("[Scheduler] failed to prepare daily challenges")
			return
		}
		logger.Log.Info("✅ daily challenges prepared")
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(task),
		gocron.WithName("daily-challenges"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	task()
	sched.Start()
	return sched, nil
}
