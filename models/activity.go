package models

import (
	"time"

	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityMissionCompleted    ActivityType = "mission_completed"
	ActivityJobApplication      ActivityType = "job_application"
	ActivityNotebookEntry       ActivityType = "notebook_entry"
	ActivityLearningCompleted   ActivityType = "learning_completed"
	ActivityAchievementUnlocked ActivityType = "achievement_unlocked"
	ActivityChallengeCompleted  ActivityType = "challenge_completed"
	ActivityLevelUp             ActivityType = "level_up"
	ActivityXPGranted           ActivityType = "xp_granted"
)

// Activity is an append-only feed row; the SSE stream tails it.
type Activity struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string       `gorm:"index:idx_activity_user_created;type:varchar(36);not null" json:"user_id"`
	Type      ActivityType `gorm:"type:varchar(32);not null" json:"type"`
	Message   string       `gorm:"type:text" json:"message"`
	XPDelta   int64        `json:"xp_delta"`
	RefID     string       `gorm:"type:varchar(36)" json:"ref_id,omitempty"`
	CreatedAt time.Time    `gorm:"index:idx_activity_user_created;autoCreateTime" json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
