package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"career-quest/gamification"
	"career-quest/logger"
	"career-quest/models"
)

type EventKind string

const (
	EventMissionCompleted    EventKind = "mission_completed"
	EventMissionAbandoned    EventKind = "mission_abandoned"
	EventJobApplication      EventKind = "job_application"
	EventApplicationAdvanced EventKind = "application_advanced"
	EventNotebookEntry       EventKind = "notebook_entry"
	EventLearningCompleted   EventKind = "learning_completed"
	EventXPGrant             EventKind = "xp_grant"
	// EventCheck only re-evaluates achievements and the daily challenge.
	EventCheck EventKind = "check"
)

// countsForStreak reports whether the event is a qualifying activity for the day.
func (k EventKind) countsForStreak() bool {
	switch k {
	case EventMissionCompleted, EventJobApplication, EventApplicationAdvanced, EventNotebookEntry, EventLearningCompleted:
		return true
	}
	return false
}

func (k EventKind) activityType() (models.ActivityType, bool) {
	switch k {
	case EventMissionCompleted:
		return models.ActivityMissionCompleted, true
	case EventJobApplication, EventApplicationAdvanced:
		return models.ActivityJobApplication, true
	case EventNotebookEntry:
		return models.ActivityNotebookEntry, true
	case EventLearningCompleted:
		return models.ActivityLearningCompleted, true
	case EventXPGrant:
		return models.ActivityXPGranted, true
	}
	return "", false
}

// Event is one primary action that already committed.
type Event struct {
	UserID string
	Kind   EventKind
	XP     int64     // base XP for the action itself
	Source string    // shown in the activity feed
	RefID  string    // id of the mission, application, ...
	At     time.Time // zero means now
}

// Outcome is everything an event changed.
type Outcome struct {
	XPAwarded      int64                      `json:"xp_awarded"`
	Level          gamification.LevelSnapshot `json:"level"`
	LeveledUp      bool                       `json:"leveled_up"`
	Streak         gamification.StreakState   `json:"streak"`
	StreakChange   gamification.StreakChange  `json:"streak_change,omitempty"`
	NewlyUnlocked  []models.Achievement       `json:"newly_unlocked"`
	DailyChallenge *ChallengeResult           `json:"daily_challenge,omitempty"`
	Effects        []gamification.SideEffect  `json:"effects"`
}

const (
	stepXP             = "xp"
	stepStreak         = "streak"
	stepAchievements   = "achievements"
	stepDailyChallenge = "daily_challenge"
	stepEngine         = "engine"
)

// Engine is the single entry point that mutates a user's gamification state.
type Engine struct {
	DB           *gorm.DB
	Locker       UserLocker
	Achievements *AchievementService
	Challenges   *DailyChallengeService
	Metrics      *Metrics
	Now          func() time.Time
}

func NewEngine(db *gorm.DB, locker UserLocker, achievements *AchievementService, challenges *DailyChallengeService, metrics *Metrics) *Engine {
	return &Engine{
		DB:           db,
		Locker:       locker,
		Achievements: achievements,
		Challenges:   challenges,
		Metrics:      metrics,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Apply runs one event under the user's lock and inside one transaction.
// Achievement and challenge steps are isolated by savepoints: a failing step
// is rolled back and reported as skipped while the rest of the event commits.
func (e *Engine) Apply(ctx context.Context, ev Event) (*Outcome, error) {
	release, err := e.Locker.Lock(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", ev.UserID, err)
	}
	defer release()

	// stamped under the lock so events apply in the order they are timed
	at := ev.At
	if at.IsZero() {
		at = e.Now()
	}
	at = at.UTC()

	out := &Outcome{NewlyUnlocked: []models.Achievement{}}
	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", ev.UserID).Error; err != nil {
			return notFound(err)
		}
		startXP, startLevel := user.TotalXP, user.Level

		if ev.XP != 0 {
			user.AddXP(ev.XP)
			out.Effects = append(out.Effects, gamification.Applied(stepXP))
		}
		if kind, ok := ev.Kind.activityType(); ok {
			if err := tx.Create(&models.Activity{
				UserID:    user.ID,
				Type:      kind,
				Message:   ev.Source,
				XPDelta:   user.TotalXP - startXP,
				RefID:     ev.RefID,
				CreatedAt: at,
			}).Error; err != nil {
				return fmt.Errorf("record activity: %w", err)
			}
		}

		if ev.Kind.countsForStreak() {
			state := user.Streak()
			today := gamification.LocalDate(at, user.Timezone)
			if state.LastActiveDate != nil && today.Before(*state.LastActiveDate) {
				// a late event from an already counted day
				today = *state.LastActiveDate
			}
			next, change := gamification.UpdateStreak(state, today)
			user.SetStreak(next)
			out.StreakChange = change
			if change == gamification.StreakUnchanged {
				out.Effects = append(out.Effects, gamification.Unchanged(stepStreak))
			} else {
				out.Effects = append(out.Effects, gamification.Applied(stepStreak))
			}
		}

		fx := e.step(tx, &user, stepAchievements, func() (gamification.SideEffect, error) {
			eval, err := e.Achievements.CheckAndUnlock(ctx, tx, &user, at)
			if err != nil {
				return gamification.SideEffect{}, err
			}
			for _, a := range eval.Unlocked {
				if err := tx.Create(&models.Activity{
					UserID:    user.ID,
					Type:      models.ActivityAchievementUnlocked,
					Message:   "Unlocked " + a.Name,
					XPDelta:   a.XPReward,
					RefID:     a.ID,
					CreatedAt: at,
				}).Error; err != nil {
					return gamification.SideEffect{}, fmt.Errorf("record unlock: %w", err)
				}
			}
			out.NewlyUnlocked = append(out.NewlyUnlocked, eval.Unlocked...)
			out.Effects = append(out.Effects, eval.Skipped...)
			if len(eval.Unlocked) == 0 {
				return gamification.Unchanged(stepAchievements), nil
			}
			return gamification.Applied(stepAchievements), nil
		})
		out.Effects = append(out.Effects, fx)

		fx = e.step(tx, &user, stepDailyChallenge, func() (gamification.SideEffect, error) {
			res, err := e.Challenges.UpdateProgress(ctx, tx, &user, at)
			if err != nil {
				return gamification.SideEffect{}, err
			}
			if !res.NewlyCompleted {
				out.DailyChallenge = res
				return gamification.Unchanged(stepDailyChallenge), nil
			}
			if err := tx.Create(&models.Activity{
				UserID:    user.ID,
				Type:      models.ActivityChallengeCompleted,
				Message:   "Completed daily challenge: " + res.Challenge.Title,
				XPDelta:   res.Challenge.XPReward,
				RefID:     res.Challenge.ID,
				CreatedAt: at,
			}).Error; err != nil {
				return gamification.SideEffect{}, fmt.Errorf("record challenge: %w", err)
			}
			out.DailyChallenge = res
			return gamification.Applied(stepDailyChallenge), nil
		})
		out.Effects = append(out.Effects, fx)

		if user.Level > startLevel {
			out.LeveledUp = true
			if err := tx.Create(&models.Activity{
				UserID:    user.ID,
				Type:      models.ActivityLevelUp,
				Message:   fmt.Sprintf("Reached level %d", user.Level),
				CreatedAt: at,
			}).Error; err != nil {
				return fmt.Errorf("record level up: %w", err)
			}
		}

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("save user: %w", err)
		}

		out.XPAwarded = user.TotalXP - startXP
		out.Level = gamification.SnapshotFor(user.TotalXP)
		out.Streak = user.Streak()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Metrics.ObserveOutcome(ev.Kind, out)
	logger.ForUser(ev.UserID).WithFields(map[string]any{
		"kind":       ev.Kind,
		"xp_awarded": out.XPAwarded,
		"level":      out.Level.Level,
		"unlocked":   len(out.NewlyUnlocked),
	}).Debug("🎮 gamification event applied")
	return out, nil
}

// step runs fn under a savepoint. On failure the user row and the database are
// restored to the savepoint and the step is reported as skipped.
func (e *Engine) step(tx *gorm.DB, user *models.User, name string, fn func() (gamification.SideEffect, error)) gamification.SideEffect {
	snapshot := *user
	if err := tx.SavePoint(name).Error; err != nil {
		return gamification.Skipped(name, err)
	}

	effect, err := fn()
	if err == nil {
		return effect
	}

	*user = snapshot
	log := logger.ForUser(user.ID).WithField("step", name)
	if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
		log.WithError(rbErr).Error("❌ rollback to savepoint failed")
	}
	log.WithError(err).Warn("⚠️ gamification step skipped")
	return gamification.Skipped(name, err)
}

// Notify applies ev for a primary write that already committed. It never
// fails; an engine error comes back as a skipped effect.
func (e *Engine) Notify(ctx context.Context, ev Event) *Outcome {
	out, err := e.Apply(ctx, ev)
	if err == nil {
		return out
	}
	logger.ForUser(ev.UserID).WithError(err).WithField("kind", ev.Kind).Error("❌ gamification event failed")
	out = &Outcome{
		NewlyUnlocked: []models.Achievement{},
		Effects:       []gamification.SideEffect{gamification.Skipped(stepEngine, err)},
	}
	e.Metrics.ObserveOutcome(ev.Kind, out)
	return out
}

// CheckAchievements re-evaluates the catalog for one user.
func (e *Engine) CheckAchievements(ctx context.Context, userID string) (*Outcome, error) {
	return e.Apply(ctx, Event{UserID: userID, Kind: EventCheck})
}

// UpdateDailyChallenge refreshes the user's standing on the current challenge.
func (e *Engine) UpdateDailyChallenge(ctx context.Context, userID string) (*ChallengeResult, []gamification.SideEffect, error) {
	out, err := e.Apply(ctx, Event{UserID: userID, Kind: EventCheck})
	if err != nil {
		return nil, nil, err
	}
	return out.DailyChallenge, out.Effects, nil
}
