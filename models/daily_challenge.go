package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"career-quest/gamification"
)

type ChallengeStatus string

const (
	ChallengeNotStarted ChallengeStatus = "NOT_STARTED"
	ChallengeInProgress ChallengeStatus = "IN_PROGRESS"
	ChallengeCompleted  ChallengeStatus = "COMPLETED"
)

// DailyChallenge is the single challenge of one calendar day.
type DailyChallenge struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Date        string         `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"` // YYYY-MM-DD
	Type        string         `gorm:"type:varchar(32);not null" json:"type"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Requirement datatypes.JSON `gorm:"not null" json:"requirement"`
	XPReward    int64          `gorm:"default:0" json:"xp_reward"`
	Timestamps
}

func (c *DailyChallenge) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (c *DailyChallenge) ParsedRequirement() (gamification.Requirement, error) {
	return gamification.ParseRequirement(c.Requirement)
}

// DailyChallengeProgress never moves backwards: status only advances and progress only grows.
type DailyChallengeProgress struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string          `gorm:"uniqueIndex:idx_user_challenge;type:varchar(36);not null" json:"user_id"`
	ChallengeID string          `gorm:"uniqueIndex:idx_user_challenge;type:varchar(36);not null" json:"challenge_id"`
	Status      ChallengeStatus `gorm:"type:varchar(16);default:'NOT_STARTED';not null" json:"status"`
	Progress    int64           `gorm:"default:0" json:"progress"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Timestamps
}

func (p *DailyChallengeProgress) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	if p.Status == "" {
		p.Status = ChallengeNotStarted
	}
	return nil
}
