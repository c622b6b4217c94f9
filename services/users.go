package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"career-quest/gamification"
	"career-quest/logger"
	"career-quest/models"
)

type UserService struct {
	DB     *gorm.DB
	Locker UserLocker
}

func NewUserService(db *gorm.DB, locker UserLocker) *UserService {
	return &UserService{DB: db, Locker: locker}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var existing int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateEmail
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Timezone: in.Timezone,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.ForUser(user.ID).Info("👤 user registered")
	return &user, nil
}

func (s *UserService) Get(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ProgressView is the GET /user/progress payload.
type ProgressView struct {
	UserID               string                     `json:"user_id"`
	Name                 string                     `json:"name"`
	Timezone             string                     `json:"timezone"`
	Level                gamification.LevelSnapshot `json:"level"`
	Streak               gamification.StreakState   `json:"streak"`
	AchievementsUnlocked int64                      `json:"achievements_unlocked"`
	AchievementsTotal    int64                      `json:"achievements_total"`
}

func (s *UserService) Progress(id string) (*ProgressView, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	view := &ProgressView{
		UserID:   user.ID,
		Name:     user.Name,
		Timezone: user.Timezone,
		Level:    gamification.SnapshotFor(user.TotalXP),
		Streak:   user.Streak(),
	}
	if err := s.DB.Model(&models.UserAchievement{}).Where("user_id = ?", id).Count(&view.AchievementsUnlocked).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Achievement{}).Count(&view.AchievementsTotal).Error; err != nil {
		return nil, err
	}
	return view, nil
}

func (s *UserService) SetTimezone(ctx context.Context, id, tz string) (*models.User, error) {
	if !gamification.ValidTimezone(tz) {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}
	release, err := s.Locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(user).Update("timezone", tz).Error; err != nil {
		return nil, err
	}
	user.Timezone = tz
	return user, nil
}

// childTables are wiped with the user. Order does not matter; there are no FKs between them.
var childTables = []any{
	&models.UserAchievement{},
	&models.DailyChallengeProgress{},
	&models.Mission{},
	&models.JobApplication{},
	&models.NotebookEntry{},
	&models.LearningProgress{},
	&models.Activity{},
}

// Delete removes the user and every row it owns in one transaction.
func (s *UserService) Delete(ctx context.Context, id string) error {
	release, err := s.Locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for _, table := range childTables {
			if err := tx.Where("user_id = ?", id).Delete(table).Error; err != nil {
				return fmt.Errorf("delete %T: %w", table, err)
			}
		}
		logger.ForUser(id).Info("🗑️ user deleted")
		return nil
	})
}

// ResetProgress clears XP, streak, unlocks and challenge progress. Career records stay.
func (s *UserService) ResetProgress(ctx context.Context, id string) (*models.User, error) {
	release, err := s.Locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var user models.User
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		for _, table := range []any{&models.UserAchievement{}, &models.DailyChallengeProgress{}, &models.Activity{}} {
			if err := tx.Where("user_id = ?", id).Delete(table).Error; err != nil {
				return fmt.Errorf("reset %T: %w", table, err)
			}
		}
		user.ResetProgress()
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	logger.ForUser(id).Info("♻️ progress reset")
	return &user, nil
}

func (s *UserService) Activities(userID string, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []models.Activity
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

// RecentlyActive returns users with any activity since the given instant.
func (s *UserService) RecentlyActive(since time.Time) ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.Activity{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return ids, nil
}
