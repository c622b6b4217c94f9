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

// maxUnlockPasses bounds the re-evaluation loop triggered by reward XP.
const maxUnlockPasses = 5

type AchievementService struct {
	DB  *gorm.DB
	Agg Aggregator
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// Evaluation is what one CheckAndUnlock call did.
type Evaluation struct {
	Unlocked []models.Achievement
	// Skipped lists achievements whose requirement could not be evaluated.
	Skipped []gamification.SideEffect
}

// CheckAndUnlock unlocks every satisfied achievement the user does not hold yet
// and adds its reward to user (the caller persists the user row). Only unlocks
// made by this call are returned.
func (s *AchievementService) CheckAndUnlock(ctx context.Context, tx *gorm.DB, user *models.User, now time.Time) (*Evaluation, error) {
	tx = tx.WithContext(ctx)
	eval := &Evaluation{}
	skipped := make(map[string]bool)
	scope := LifetimeScope(user)

	for pass := 0; pass < maxUnlockPasses; pass++ {
		locked, err := s.lockedFor(tx, user.ID)
		if err != nil {
			return eval, err
		}

		unlockedThisPass := 0
		for i := range locked {
			a := &locked[i]
			if skipped[a.ID] {
				continue
			}
			log := logger.ForUser(user.ID).WithField("achievement", a.Code)

			req, err := a.ParsedRequirement()
			if err != nil {
				log.WithError(err).Warn("⚠️ skipping achievement with malformed requirement")
				skipped[a.ID] = true
				eval.Skipped = append(eval.Skipped, gamification.Skipped("achievement:"+a.Code, err))
				continue
			}

			value, err := s.Agg.Value(tx, user, req, scope)
			if err != nil {
				return eval, fmt.Errorf("evaluate %s: %w", a.Code, err)
			}
			if !gamification.Satisfied(req, value) {
				continue
			}

			ok, err := unlock(tx, user.ID, a.ID, now)
			if err != nil {
				return eval, fmt.Errorf("unlock %s: %w", a.Code, err)
			}
			if !ok {
				continue
			}
			user.AddXP(a.XPReward)
			eval.Unlocked = append(eval.Unlocked, *a)
			unlockedThisPass++
			log.WithField("xp_reward", a.XPReward).Info("🎖️ achievement unlocked")
		}

		// another pass only matters if rewards moved the XP total
		if unlockedThisPass == 0 {
			break
		}
	}
	return eval, nil
}

func (s *AchievementService) lockedFor(tx *gorm.DB, userID string) ([]models.Achievement, error) {
	var list []models.Achievement
	held := tx.Model(&models.UserAchievement{}).Select("achievement_id").Where("user_id = ?", userID)
	if err := tx.Where("id NOT IN (?)", held).Order("xp_reward ASC, code ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load locked achievements: %w", err)
	}
	return list, nil
}

// unlock inserts the pair once. It reports false when the row already existed.
func unlock(tx *gorm.DB, userID, achievementID string, now time.Time) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Catalog lists every achievement, optionally filtered by category.
func (s *AchievementService) Catalog(category string) ([]models.Achievement, error) {
	var list []models.Achievement
	q := s.DB.Order("category ASC, xp_reward ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Unlocked lists a user's achievements, newest first.
func (s *AchievementService) Unlocked(userID string) ([]models.UnlockedAchievement, error) {
	var rows []models.UnlockedAchievement
	err := s.DB.Table("achievements").
		Select("achievements.*, user_achievements.unlocked_at").
		Joins("JOIN user_achievements ON user_achievements.achievement_id = achievements.id").
		Where("user_achievements.user_id = ?", userID).
		Order("user_achievements.unlocked_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SetIcon records the uploaded badge icon URL.
func (s *AchievementService) SetIcon(achievementID, url string) (*models.Achievement, error) {
	var a models.Achievement
	if err := s.DB.First(&a, "id = ?", achievementID).Error; err != nil {
		return nil, notFound(err)
	}
	if err := s.DB.Model(&a).Update("icon_url", url).Error; err != nil {
		return nil, err
	}
	a.IconURL = url
	return &a, nil
}
