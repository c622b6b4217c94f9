package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"career-quest/gamification"
	"career-quest/logger"
	"career-quest/models"
)

type DailyChallengeService struct {
	DB        *gorm.DB
	Policy    gamification.DayPolicy
	Templates []ChallengeTemplate
	Agg       Aggregator
}

func NewDailyChallengeService(db *gorm.DB, policy gamification.DayPolicy) *DailyChallengeService {
	return &DailyChallengeService{DB: db, Policy: policy, Templates: DefaultChallengeTemplates}
}

// ChallengeResult is the user's standing on the current challenge.
type ChallengeResult struct {
	Challenge      models.DailyChallenge         `json:"challenge"`
	Progress       models.DailyChallengeProgress `json:"progress"`
	Percent        float64                       `json:"percent"`
	NewlyCompleted bool                          `json:"newly_completed"`
}

// EnsureChallenge returns the challenge of day, creating it from the rotation
// if no instance has yet.
func (s *DailyChallengeService) EnsureChallenge(tx *gorm.DB, day time.Time) (*models.DailyChallenge, error) {
	date := gamification.FormatDate(day)
	tmpl := TemplateFor(s.Templates, day)

	raw, err := gamification.MarshalRequirement(tmpl.Requirement)
	if err != nil {
		return nil, err
	}
	candidate := models.DailyChallenge{
		Date:        date,
		Type:        string(tmpl.Requirement.Kind()),
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Requirement: datatypes.JSON(raw),
		XPReward:    tmpl.XPReward,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("create challenge %s: %w", date, err)
	}

	var ch models.DailyChallenge
	if err := tx.Where("date = ?", date).First(&ch).Error; err != nil {
		return nil, fmt.Errorf("load challenge %s: %w", date, err)
	}
	return &ch, nil
}

// UpdateProgress recomputes the user's progress on the current challenge and
// completes it at most once. The reward is added to user; the caller persists it.
func (s *DailyChallengeService) UpdateProgress(ctx context.Context, tx *gorm.DB, user *models.User, now time.Time) (*ChallengeResult, error) {
	tx = tx.WithContext(ctx)
	day, loc := s.Policy.ChallengeDay(now, user.Timezone)

	ch, err := s.EnsureChallenge(tx, day)
	if err != nil {
		return nil, err
	}
	req, err := ch.ParsedRequirement()
	if err != nil {
		return nil, fmt.Errorf("challenge %s: %w", ch.Date, err)
	}

	prog, err := s.progressRow(tx, user.ID, ch.ID)
	if err != nil {
		return nil, err
	}

	value, err := s.Agg.Value(tx, user, req, DayScope(day, loc))
	if err != nil {
		return nil, fmt.Errorf("evaluate challenge %s: %w", ch.Date, err)
	}
	progress := max(prog.Progress, value)

	result := &ChallengeResult{Challenge: *ch}

	switch {
	case prog.Status == models.ChallengeCompleted:
		// terminal; nothing to write

	case gamification.Satisfied(req, progress):
		res := tx.Model(&models.DailyChallengeProgress{}).
			Where("id = ? AND status <> ?", prog.ID, models.ChallengeCompleted).
			Updates(map[string]any{
				"status":       models.ChallengeCompleted,
				"progress":     progress,
				"completed_at": now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("complete challenge: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			user.AddXP(ch.XPReward)
			result.NewlyCompleted = true
			logger.ForUser(user.ID).WithField("challenge", ch.Date).Info("🏆 daily challenge completed")
		}

	case progress > prog.Progress || (progress > 0 && prog.Status == models.ChallengeNotStarted):
		err := tx.Model(&models.DailyChallengeProgress{}).
			Where("id = ? AND status <> ? AND progress <= ?", prog.ID, models.ChallengeCompleted, progress).
			Updates(map[string]any{
				"status":   models.ChallengeInProgress,
				"progress": progress,
			}).Error
		if err != nil {
			return nil, fmt.Errorf("update challenge progress: %w", err)
		}
	}

	if err := tx.First(prog, "id = ?", prog.ID).Error; err != nil {
		return nil, fmt.Errorf("reload challenge progress: %w", err)
	}
	result.Progress = *prog
	result.Percent = gamification.ProgressPercent(req, prog.Progress)
	return result, nil
}

func (s *DailyChallengeService) progressRow(tx *gorm.DB, userID, challengeID string) (*models.DailyChallengeProgress, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DailyChallengeProgress{
		UserID:      userID,
		ChallengeID: challengeID,
		Status:      models.ChallengeNotStarted,
	}).Error; err != nil {
		return nil, fmt.Errorf("create challenge progress: %w", err)
	}

	var prog models.DailyChallengeProgress
	if err := tx.Where("user_id = ? AND challenge_id = ?", userID, challengeID).First(&prog).Error; err != nil {
		return nil, fmt.Errorf("load challenge progress: %w", err)
	}
	return &prog, nil
}

// EnsureUpcoming pre-creates today's and tomorrow's challenge.
func (s *DailyChallengeService) EnsureUpcoming(ctx context.Context, now time.Time) error {
	day, _ := s.Policy.ChallengeDay(now, "UTC")
	for _, d := range []time.Time{day, day.AddDate(0, 0, 1)} {
		if _, err := s.EnsureChallenge(s.DB.WithContext(ctx), d); err != nil {
			return err
		}
	}
	return nil
}
