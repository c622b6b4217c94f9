package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"career-quest/gamification"
	"career-quest/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.DailyChallenge{},
		&models.DailyChallengeProgress{},
		&models.Mission{},
		&models.JobApplication{},
		&models.NotebookEntry{},
		&models.LearningProgress{},
		&models.Activity{},
	))
	return db
}

type testEnv struct {
	db           *gorm.DB
	users        *UserService
	missions     *MissionService
	apps         *JobApplicationService
	notebook     *NotebookService
	learning     *LearningService
	achievements *AchievementService
	challenges   *DailyChallengeService
	engine       *Engine
	locker       *MemoryLocker
	now          time.Time
}

// quietTemplate never completes during a test that does not write notebook entries.
var quietTemplate = ChallengeTemplate{"Quiet", "Write 50 notebook entries", gamification.NotebookEntries{Count: 50}, 10}

func newTestEnv(t *testing.T, catalog []CatalogEntry, templates ...ChallengeTemplate) *testEnv {
	t.Helper()
	db := newTestDB(t)
	require.NoError(t, SeedAchievements(db, catalog))
	if len(templates) == 0 {
		templates = []ChallengeTemplate{quietTemplate}
	}

	env := &testEnv{
		db:           db,
		locker:       NewMemoryLocker(),
		missions:     NewMissionService(db),
		apps:         NewJobApplicationService(db),
		notebook:     NewNotebookService(db),
		learning:     NewLearningService(db),
		achievements: NewAchievementService(db),
		challenges:   NewDailyChallengeService(db, gamification.DayPolicyUTC),
		now:          time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	env.challenges.Templates = templates
	env.users = NewUserService(db, env.locker)
	env.engine = NewEngine(db, env.locker, env.achievements, env.challenges, NewMetrics())
	env.engine.Now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.users.Register(RegisterInput{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) tick() time.Time {
	e.now = e.now.Add(time.Minute)
	return e.now
}

func (e *testEnv) completeFocus(t *testing.T, userID string, minutes int) *Outcome {
	t.Helper()
	m, err := e.missions.Create(userID, CreateMissionInput{Title: "focus", Type: models.MissionFocus, PlannedMinutes: minutes})
	require.NoError(t, err)
	at := e.tick()
	m, err = e.missions.Complete(userID, m.ID, CompleteMissionInput{ActualMinutes: &minutes}, at)
	require.NoError(t, err)
	return e.engine.Notify(context.Background(), Event{
		UserID: userID,
		Kind:   EventMissionCompleted,
		XP:     gamification.DefaultXPWeights.MissionXP(m.ActualMinutes),
		RefID:  m.ID,
		At:     at,
	})
}

func (e *testEnv) abandonFocus(t *testing.T, userID string) *Outcome {
	t.Helper()
	m, err := e.missions.Create(userID, CreateMissionInput{Title: "focus", Type: models.MissionFocus})
	require.NoError(t, err)
	at := e.tick()
	_, err = e.missions.Abandon(userID, m.ID, at)
	require.NoError(t, err)
	return e.engine.Notify(context.Background(), Event{UserID: userID, Kind: EventMissionAbandoned, RefID: m.ID, At: at})
}

func (e *testEnv) reload(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.users.Get(id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) countRows(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func effectFor(out *Outcome, step string) (gamification.SideEffect, bool) {
	for _, fx := range out.Effects {
		if fx.Step == step {
			return fx, true
		}
	}
	return gamification.SideEffect{}, false
}
