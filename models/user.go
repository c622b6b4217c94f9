package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"career-quest/gamification"
)

// User owns every career record and carries the denormalized gamification counters.
// The ID doubles as the bearer token.
type User struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Timezone string `gorm:"type:varchar(64);default:'UTC'" json:"timezone"`

	// Level progression. Level and XP are derived from TotalXP on every award.
	XP      int64 `json:"xp" gorm:"default:0"`
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`

	CurrentStreak  int        `json:"current_streak" gorm:"default:0"`
	LongestStreak  int        `json:"longest_streak" gorm:"default:0"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty" gorm:"type:date"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if u.Level == 0 {
		u.Level = 1
	}
	return nil
}

// Streak returns the streak counters as the pure tracker sees them.
func (u *User) Streak() gamification.StreakState {
	s := gamification.StreakState{CurrentStreak: u.CurrentStreak, LongestStreak: u.LongestStreak}
	if u.LastActiveDate != nil {
		d := gamification.CalendarDate(*u.LastActiveDate)
		s.LastActiveDate = &d
	}
	return s
}

func (u *User) SetStreak(s gamification.StreakState) {
	u.CurrentStreak = s.CurrentStreak
	u.LongestStreak = s.LongestStreak
	u.LastActiveDate = s.LastActiveDate
}

// AddXP adds amount to the lifetime total and re-derives level and in-level XP.
func (u *User) AddXP(amount int64) {
	if amount > 0 && u.TotalXP > math.MaxInt64-amount {
		u.TotalXP = math.MaxInt64
	} else {
		u.TotalXP += amount
	}
	if u.TotalXP < 0 {
		u.TotalXP = 0
	}
	u.Level = gamification.LevelForXP(u.TotalXP)
	u.XP = gamification.XPIntoLevel(u.TotalXP)
}

// ResetProgress zeroes every gamification counter.
func (u *User) ResetProgress() {
	u.XP, u.TotalXP, u.Level = 0, 0, 1
	u.CurrentStreak, u.LongestStreak = 0, 0
	u.LastActiveDate = nil
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
