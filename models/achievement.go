package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"career-quest/gamification"
)

type AchievementCategory string

const (
	CategoryFocus     AchievementCategory = "FOCUS"
	CategoryStreak    AchievementCategory = "STREAK"
	CategoryLearning  AchievementCategory = "LEARNING"
	CategoryJobSearch AchievementCategory = "JOB_SEARCH"
	CategoryXP        AchievementCategory = "XP"
)

var AchievementCategories = []AchievementCategory{
	CategoryFocus, CategoryStreak, CategoryLearning, CategoryJobSearch, CategoryXP,
}

// Achievement is a static catalog entry shared by all users.
type Achievement struct {
	ID          string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code        string              `gorm:"uniqueIndex;not null" json:"code"` // slug of Name, e.g. "focus-apprentice"
	Name        string              `gorm:"not null" json:"name"`
	Description string              `gorm:"type:text" json:"description"`
	Category    AchievementCategory `gorm:"type:varchar(16);index;not null" json:"category"`
	Requirement datatypes.JSON      `gorm:"not null" json:"requirement"` // e.g. {"type":"MISSIONS_COMPLETED","count":10,"missionType":"FOCUS"}
	XPReward    int64               `gorm:"default:0" json:"xp_reward"`
	IconURL     string              `gorm:"type:text" json:"icon_url,omitempty"`
	Timestamps
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// ParsedRequirement decodes the stored requirement document.
func (a *Achievement) ParsedRequirement() (gamification.Requirement, error) {
	return gamification.ParseRequirement(a.Requirement)
}

// UserAchievement is created at most once per (user, achievement).
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string    `gorm:"uniqueIndex:idx_user_achievement;type:varchar(36);not null" json:"user_id"`
	AchievementID string    `gorm:"uniqueIndex:idx_user_achievement;type:varchar(36);not null" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}

func (ua *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	assignID(&ua.ID)
	return nil
}

// UnlockedAchievement is the joined view returned by GET /user/achievements.
type UnlockedAchievement struct {
	Achievement
	UnlockedAt time.Time `json:"unlocked_at"`
}
