package models

import (
	"time"

	"gorm.io/gorm"
)

type MissionType string

const (
	MissionFocus      MissionType = "FOCUS"
	MissionDeepWork   MissionType = "DEEP_WORK"
	MissionLearning   MissionType = "LEARNING"
	MissionJobSearch  MissionType = "JOB_SEARCH"
	MissionNetworking MissionType = "NETWORKING"
)

type MissionStatus string

const (
	MissionPending    MissionStatus = "PENDING"
	MissionInProgress MissionStatus = "IN_PROGRESS"
	MissionCompleted  MissionStatus = "COMPLETED"
	MissionAbandoned  MissionStatus = "ABANDONED"
)

// Mission is a timed focus or work session.
type Mission struct {
	ID             string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string        `gorm:"index:idx_mission_user_status;type:varchar(36);not null" json:"user_id"`
	Title          string        `gorm:"not null" json:"title"`
	Type           MissionType   `gorm:"type:varchar(16);not null" json:"type"`
	Status         MissionStatus `gorm:"index:idx_mission_user_status;type:varchar(16);default:'PENDING';not null" json:"status"`
	PlannedMinutes int           `json:"planned_minutes"`
	ActualMinutes  int           `json:"actual_minutes"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	AbandonedAt    *time.Time    `json:"abandoned_at,omitempty"`
	Timestamps
}

func (m *Mission) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	if m.Status == "" {
		m.Status = MissionPending
	}
	return nil
}

// EndedAt is when the mission reached a terminal status, or nil while it is still open.
func (m *Mission) EndedAt() *time.Time {
	switch m.Status {
	case MissionCompleted:
		return m.CompletedAt
	case MissionAbandoned:
		return m.AbandonedAt
	}
	return nil
}
