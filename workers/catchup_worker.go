// workers/catchup_worker.go
package workers

import (
	"context"
	"time"

	"career-quest/logger"
	"career-quest/services"
)

// ActiveUserSource lists users worth re-evaluating.
type ActiveUserSource interface {
	RecentlyActive(since time.Time) ([]string, error)
}

// Evaluator re-runs achievement and challenge evaluation for one user.
type Evaluator interface {
	CheckAchievements(ctx context.Context, userID string) (*services.Outcome, error)
}

// CatchUpWorker re-evaluates recently active users so that evaluations skipped
// after a failed step are eventually applied.
type CatchUpWorker struct {
	users    ActiveUserSource
	engine   Evaluator
	interval time.Duration
	lookback time.Duration
	now      func() time.Time
}

func NewCatchUpWorker(users ActiveUserSource, engine Evaluator, interval time.Duration) *CatchUpWorker {
	return &CatchUpWorker{
		users:    users,
		engine:   engine,
		interval: interval,
		lookback: 48 * time.Hour,
		now:      time.Now,
	}
}

func (w *CatchUpWorker) Start(ctx context.Context) {
	logger.Log.WithField("interval", w.interval.String()).Info("🔁 Starting catch-up worker")
	go w.run(ctx)
}

func (w *CatchUpWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				logger.Log.WithError(err).Error("❌ catch-up pass failed")
			}
		case <-ctx.Done():
			logger.Log.Info("⏹️ catch-up worker stopped")
			return
		}
	}
}

// PassResult summarises one catch-up pass.
type PassResult struct {
	Checked  int
	Unlocked int
	Failed   int
}

// RunOnce evaluates every user active within the lookback window.
func (w *CatchUpWorker) RunOnce(ctx context.Context) (PassResult, error) {
	var res PassResult
	ids, err := w.users.RecentlyActive(w.now().Add(-w.lookback))
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		out, err := w.engine.CheckAchievements(ctx, id)
		if err != nil {
			res.Failed++
			logger.ForUser(id).WithError(err).Warn("⚠️ catch-up evaluation failed")
			continue
		}
		res.Checked++
		res.Unlocked += len(out.NewlyUnlocked)
	}

	if res.Unlocked > 0 || res.Failed > 0 {
		logger.Log.WithFields(map[string]any{
			"checked":  res.Checked,
			"unlocked": res.Unlocked,
			"failed":   res.Failed,
		}).Info("✅ catch-up pass done")
	}
	return res, nil
}
