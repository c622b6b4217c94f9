package models

import (
	"time"

	"gorm.io/gorm"
)

type ResourceType string

const (
	ResourceCourse  ResourceType = "COURSE"
	ResourceArticle ResourceType = "ARTICLE"
	ResourceVideo   ResourceType = "VIDEO"
	ResourceBook    ResourceType = "BOOK"
	ResourceOther   ResourceType = "OTHER"
)

type LearningStatus string

const (
	LearningInProgress LearningStatus = "IN_PROGRESS"
	LearningCompleted  LearningStatus = "COMPLETED"
)

// LearningProgress tracks one learning resource a user works through.
type LearningProgress struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string         `gorm:"index;type:varchar(36);not null" json:"user_id"`
	ResourceTitle string         `gorm:"not null" json:"resource_title"`
	ResourceType  ResourceType   `gorm:"type:varchar(16);default:'OTHER'" json:"resource_type"`
	ResourceURL   string         `gorm:"type:text" json:"resource_url,omitempty"`
	Status        LearningStatus `gorm:"type:varchar(16);default:'IN_PROGRESS';not null" json:"status"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Timestamps
}

func (LearningProgress) TableName() string { return "learning_progress" }

func (l *LearningProgress) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	if l.Status == "" {
		l.Status = LearningInProgress
	}
	if l.ResourceType == "" {
		l.ResourceType = ResourceOther
	}
	return nil
}
