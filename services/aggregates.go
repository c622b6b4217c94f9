package services

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"career-quest/gamification"
	"career-quest/models"
)

// Scope bounds an aggregation. A zero window means lifetime.
type Scope struct {
	From, To time.Time
	// Location groups timestamps into calendar days for LEARNING_IN_ONE_DAY.
	Location *time.Location
	// Daily switches STREAK_DAYS to the current streak and TOTAL_XP to XP earned inside the window.
	Daily bool
}

func LifetimeScope(user *models.User) Scope {
	return Scope{Location: gamification.LoadLocation(user.Timezone)}
}

// DayScope covers one challenge day.
func DayScope(day time.Time, loc *time.Location) Scope {
	from, to := gamification.DayWindow(day, loc)
	return Scope{From: from, To: to, Location: loc, Daily: true}
}

func (s Scope) bounded() bool { return !s.From.IsZero() }

func (s Scope) apply(q *gorm.DB, column string) *gorm.DB {
	if !s.bounded() {
		return q
	}
	return q.Where(column+" >= ? AND "+column+" < ?", s.From, s.To)
}

// Aggregator computes the value a requirement is measured against.
type Aggregator struct{}

// Value runs the one query that backs r. Every query goes through tx so it
// sees the caller's uncommitted writes.
func (Aggregator) Value(tx *gorm.DB, user *models.User, r gamification.Requirement, scope Scope) (int64, error) {
	switch req := r.(type) {
	case gamification.MissionsCompleted:
		q := completedMissions(tx, user.ID, scope)
		if req.MissionType != "" {
			q = q.Where("type = ?", req.MissionType)
		}
		return count(q)

	case gamification.FocusSessions:
		if req.Consecutive {
			return longestFocusRun(tx, user.ID, scope)
		}
		return count(completedMissions(tx, user.ID, scope).Where("type = ?", models.MissionFocus))

	case gamification.FocusDuration:
		return scalar(completedMissions(tx, user.ID, scope).Where("type = ?", models.MissionFocus), "COALESCE(MAX(actual_minutes), 0)")

	case gamification.FocusMinutes:
		return scalar(completedMissions(tx, user.ID, scope).Where("type = ?", models.MissionFocus), "COALESCE(SUM(actual_minutes), 0)")

	case gamification.LearningCompleted:
		return count(completedLearning(tx, user.ID, scope))

	case gamification.LearningInOneDay:
		return bestLearningDay(tx, user.ID, scope)

	case gamification.JobApplications:
		q := scope.apply(tx.Model(&models.JobApplication{}).Where("user_id = ?", user.ID), "created_at")
		if req.Status != "" {
			status := models.ApplicationStatus(req.Status)
			switch status {
			case models.ApplicationApplied, models.ApplicationInterviewing, models.ApplicationOffer:
				stage, _ := models.StageOf(status)
				q = q.Where("stage_reached >= ?", stage)
			default:
				q = q.Where("status = ?", status)
			}
		}
		return count(q)

	case gamification.NotebookEntries:
		return count(scope.apply(tx.Model(&models.NotebookEntry{}).Where("user_id = ?", user.ID), "created_at"))

	case gamification.StreakDays:
		if scope.Daily {
			return int64(user.CurrentStreak), nil
		}
		return int64(max(user.CurrentStreak, user.LongestStreak)), nil

	case gamification.TotalXP:
		if !scope.Daily {
			return user.TotalXP, nil
		}
		q := scope.apply(tx.Model(&models.Activity{}).Where("user_id = ? AND xp_delta > 0", user.ID), "created_at")
		return scalar(q, "COALESCE(SUM(xp_delta), 0)")
	}
	return 0, fmt.Errorf("%w: no aggregation for %T", gamification.ErrInvalidRequirement, r)
}

func completedMissions(tx *gorm.DB, userID string, scope Scope) *gorm.DB {
	q := tx.Model(&models.Mission{}).Where("user_id = ? AND status = ?", userID, models.MissionCompleted)
	return scope.apply(q, "completed_at")
}

func completedLearning(tx *gorm.DB, userID string, scope Scope) *gorm.DB {
	q := tx.Model(&models.LearningProgress{}).Where("user_id = ? AND status = ?", userID, models.LearningCompleted)
	return scope.apply(q, "completed_at")
}

func count(q *gorm.DB) (int64, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func scalar(q *gorm.DB, expr string) (int64, error) {
	var n int64
	if err := q.Select(expr).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("aggregate %s: %w", expr, err)
	}
	return n, nil
}

// longestFocusRun is the longest run of completed FOCUS missions, in the order
// they ended, that no abandoned FOCUS mission interrupts.
func longestFocusRun(tx *gorm.DB, userID string, scope Scope) (int64, error) {
	var missions []models.Mission
	q := tx.Where("user_id = ? AND type = ? AND status IN ?", userID, models.MissionFocus,
		[]models.MissionStatus{models.MissionCompleted, models.MissionAbandoned})
	if scope.bounded() {
		q = q.Where("((completed_at >= ? AND completed_at < ?) OR (abandoned_at >= ? AND abandoned_at < ?))",
			scope.From, scope.To, scope.From, scope.To)
	}
	if err := q.Find(&missions).Error; err != nil {
		return 0, fmt.Errorf("load focus missions: %w", err)
	}

	sort.SliceStable(missions, func(i, j int) bool {
		return endedAt(&missions[i]).Before(endedAt(&missions[j]))
	})

	var run, best int64
	for i := range missions {
		if missions[i].Status == models.MissionAbandoned {
			run = 0
			continue
		}
		run++
		best = max(best, run)
	}
	return best, nil
}

func endedAt(m *models.Mission) time.Time {
	if t := m.EndedAt(); t != nil {
		return *t
	}
	return m.UpdatedAt
}

// bestLearningDay is the most learning completions within one calendar day.
func bestLearningDay(tx *gorm.DB, userID string, scope Scope) (int64, error) {
	var stamps []time.Time
	if err := completedLearning(tx, userID, scope).Where("completed_at IS NOT NULL").Pluck("completed_at", &stamps).Error; err != nil {
		return 0, fmt.Errorf("load learning completions: %w", err)
	}

	loc := scope.Location
	if loc == nil {
		loc = time.UTC
	}
	perDay := make(map[string]int64)
	var best int64
	for _, ts := range stamps {
		key := ts.In(loc).Format(gamification.DateLayout)
		perDay[key]++
		best = max(best, perDay[key])
	}
	return best, nil
}
