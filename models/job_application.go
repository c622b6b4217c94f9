package models

import (
	"time"

	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationWishlist     ApplicationStatus = "WISHLIST"
	ApplicationApplied      ApplicationStatus = "APPLIED"
	ApplicationInterviewing ApplicationStatus = "INTERVIEWING"
	ApplicationOffer        ApplicationStatus = "OFFER"
	ApplicationRejected     ApplicationStatus = "REJECTED"
	ApplicationAccepted     ApplicationStatus = "ACCEPTED"
)

// Pipeline stages. REJECTED keeps whatever stage was reached before it.
var applicationStages = map[ApplicationStatus]int{
	ApplicationWishlist:     0,
	ApplicationApplied:      1,
	ApplicationInterviewing: 2,
	ApplicationOffer:        3,
	ApplicationAccepted:     4,
}

// StageOf returns the pipeline rank of a status and whether it has one.
func StageOf(s ApplicationStatus) (int, bool) {
	stage, ok := applicationStages[s]
	return stage, ok
}

type JobApplication struct {
	ID       string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID   string            `gorm:"index;type:varchar(36);not null" json:"user_id"`
	Company  string            `gorm:"not null" json:"company"`
	Position string            `gorm:"not null" json:"position"`
	URL      string            `gorm:"type:text" json:"url,omitempty"`
	Status   ApplicationStatus `gorm:"type:varchar(16);default:'APPLIED';not null" json:"status"`
	// StageReached is the furthest pipeline stage this application ever hit (see StageOf).
	StageReached int        `gorm:"default:0" json:"stage_reached"`
	AppliedAt    *time.Time `json:"applied_at,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	Timestamps
}

func (j *JobApplication) BeforeCreate(tx *gorm.DB) error {
	assignID(&j.ID)
	if j.Status == "" {
		j.Status = ApplicationApplied
	}
	if stage, ok := StageOf(j.Status); ok && stage > j.StageReached {
		j.StageReached = stage
	}
	return nil
}

// Advance moves the application to status, keeping StageReached monotonic.
func (j *JobApplication) Advance(status ApplicationStatus, now time.Time) {
	j.Status = status
	if stage, ok := StageOf(status); ok && stage > j.StageReached {
		j.StageReached = stage
	}
	if j.AppliedAt == nil && j.StageReached >= applicationStages[ApplicationApplied] {
		t := now
		j.AppliedAt = &t
	}
}
