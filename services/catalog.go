package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"career-quest/gamification"
	"career-quest/logger"
	"career-quest/models"
)

// CatalogEntry is a seedable achievement definition.
type CatalogEntry struct {
	Name        string
	Description string
	Category    models.AchievementCategory
	Requirement gamification.Requirement
	XPReward    int64
}

// DefaultCatalog covers every category.
var DefaultCatalog = []CatalogEntry{
	{"First Focus", "Complete your first focus session", models.CategoryFocus, gamification.MissionsCompleted{Count: 1, MissionType: "FOCUS"}, 25},
	{"Focus Apprentice", "Complete 10 focus sessions", models.CategoryFocus, gamification.MissionsCompleted{Count: 10, MissionType: "FOCUS"}, 100},
	{"Deep Diver", "Finish a single focus session of 90 minutes", models.CategoryFocus, gamification.FocusDuration{Minutes: 90}, 150},
	{"Thousand Minutes", "Spend 1000 minutes in focus sessions", models.CategoryFocus, gamification.FocusMinutes{Minutes: 1000}, 300},
	{"Mission Runner", "Complete 25 missions of any type", models.CategoryFocus, gamification.MissionsCompleted{Count: 25}, 200},

	{"Warming Up", "Stay active 3 days in a row", models.CategoryStreak, gamification.StreakDays{Days: 3}, 50},
	{"Week Warrior", "Stay active 7 days in a row", models.CategoryStreak, gamification.StreakDays{Days: 7}, 150},
	{"Unstoppable", "Stay active 30 days in a row", models.CategoryStreak, gamification.StreakDays{Days: 30}, 500},

	{"Curious Mind", "Complete your first learning resource", models.CategoryLearning, gamification.LearningCompleted{Count: 1}, 25},
	{"Scholar", "Complete 10 learning resources", models.CategoryLearning, gamification.LearningCompleted{Count: 10}, 200},
	{"Binge Learner", "Complete 3 learning resources in one day", models.CategoryLearning, gamification.LearningInOneDay{Count: 3}, 100},
	{"Note Taker", "Write 5 notebook entries", models.CategoryLearning, gamification.NotebookEntries{Count: 5}, 50},

	{"First Application", "Send your first job application", models.CategoryJobSearch, gamification.JobApplications{Count: 1, Status: "APPLIED"}, 25},
	{"Pipeline Builder", "Send 10 job applications", models.CategoryJobSearch, gamification.JobApplications{Count: 10, Status: "APPLIED"}, 150},
	{"In The Room", "Reach the interview stage", models.CategoryJobSearch, gamification.JobApplications{Count: 1, Status: "INTERVIEWING"}, 100},
	{"Offer Unlocked", "Receive a job offer", models.CategoryJobSearch, gamification.JobApplications{Count: 1, Status: "OFFER"}, 300},
	{"Thick Skin", "Get through 5 rejections", models.CategoryJobSearch, gamification.JobApplications{Count: 5, Status: "REJECTED"}, 75},

	{"Rising Star", "Earn 500 XP", models.CategoryXP, gamification.TotalXP{XP: 500}, 50},
	{"Career Climber", "Earn 2500 XP", models.CategoryXP, gamification.TotalXP{XP: 2500}, 150},
	{"Legend", "Earn 10000 XP", models.CategoryXP, gamification.TotalXP{XP: 10000}, 500},
}

// ChallengeTemplate is one entry of the daily rotation.
type ChallengeTemplate struct {
	Title       string
	Description string
	Requirement gamification.Requirement
	XPReward    int64
}

var DefaultChallengeTemplates = []ChallengeTemplate{
	{"Focus Triple", "Complete 3 focus sessions in a row without abandoning one", gamification.FocusSessions{Count: 3, Consecutive: true}, 75},
	{"Apply Yourself", "Send 2 job applications today", gamification.JobApplications{Count: 2}, 50},
	{"Hour of Power", "Spend 60 minutes in focus sessions today", gamification.FocusMinutes{Minutes: 60}, 60},
	{"Study Hall", "Complete 1 learning resource today", gamification.LearningCompleted{Count: 1}, 40},
	{"Dear Diary", "Write 2 notebook entries today", gamification.NotebookEntries{Count: 2}, 30},
	{"Mission Control", "Complete 4 missions of any type today", gamification.MissionsCompleted{Count: 4}, 60},
	{"XP Hunter", "Earn 150 XP today", gamification.TotalXP{XP: 150}, 50},
}

// TemplateFor picks the rotation entry for a calendar day. The choice only
// depends on the date, so every instance agrees on it.
func TemplateFor(templates []ChallengeTemplate, day time.Time) ChallengeTemplate {
	epochDay := gamification.CalendarDate(day).Unix() / 86400
	idx := int(epochDay % int64(len(templates)))
	if idx < 0 {
		idx += len(templates)
	}
	return templates[idx]
}

// ValidateCatalog rejects entries whose requirement would not survive a round trip.
func ValidateCatalog(entries []CatalogEntry, templates []ChallengeTemplate) error {
	seen := make(map[string]string)
	for _, e := range entries {
		code := slug.Make(e.Name)
		if prev, dup := seen[code]; dup {
			return fmt.Errorf("achievement %q collides with %q on code %s", e.Name, prev, code)
		}
		seen[code] = e.Name
		if err := roundTrip(e.Requirement); err != nil {
			return fmt.Errorf("achievement %q: %w", e.Name, err)
		}
	}
	if len(templates) == 0 {
		return fmt.Errorf("no daily challenge templates")
	}
	for _, t := range templates {
		if err := roundTrip(t.Requirement); err != nil {
			return fmt.Errorf("challenge template %q: %w", t.Title, err)
		}
	}
	return nil
}

func roundTrip(r gamification.Requirement) error {
	raw, err := gamification.MarshalRequirement(r)
	if err != nil {
		return err
	}
	_, err = gamification.ParseRequirement(raw)
	return err
}

// SeedAchievements upserts the catalog by code. Icons uploaded at runtime are kept.
func SeedAchievements(db *gorm.DB, entries []CatalogEntry) error {
	for _, e := range entries {
		a := models.Achievement{
			Code:        slug.Make(e.Name),
			Name:        e.Name,
			Description: e.Description,
			Category:    e.Category,
			Requirement: datatypes.JSON(gamification.MustRequirement(e.Requirement)),
			XPReward:    e.XPReward,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "requirement", "xp_reward", "updated_at"}),
		}).Create(&a).Error
		if err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.Code, err)
		}
	}
	logger.Log.WithField("count", len(entries)).Info("🏅 achievement catalog seeded")
	return nil
}

// CategoryLabel renders JOB_SEARCH as "Job Search".
func CategoryLabel(c models.AchievementCategory) string {
	// a Caser holds state, so each call gets its own
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(c)), "_", " "))
}
