package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"career-quest/gamification"
	"career-quest/models"
)

func TestEngine_TenthFocusSessionUnlocksApprenticeOnce(t *testing.T) {
	env := newTestEnv(t, []CatalogEntry{
		{"Focus Apprentice", "Complete 10 focus sessions", models.CategoryFocus, gamification.MissionsCompleted{Count: 10, MissionType: "FOCUS"}, 100},
	})
	user := env.register(t, "ada")

	for i := 0; i < 9; i++ {
		out := env.completeFocus(t, user.ID, 25)
		require.Empty(t, out.NewlyUnlocked, "session %d", i+1)
	}

	out := env.completeFocus(t, user.ID, 25)
	require.Len(t, out.NewlyUnlocked, 1)
	assert.Equal(t, "focus-apprentice", out.NewlyUnlocked[0].Code)
	assert.Equal(t, int64(75+100), out.XPAwarded)

	again, err := env.engine.CheckAchievements(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, again.NewlyUnlocked)
	assert.Zero(t, again.XPAwarded)

	u := env.reload(t, user.ID)
	assert.Equal(t, int64(10*75+100), u.TotalXP)
	assert.Equal(t, gamification.LevelForXP(u.TotalXP), u.Level)
	assert.Equal(t, int64(1), env.countRows(t, &models.UserAchievement{}, "user_id = ?", user.ID))
	assert.Equal(t, int64(1), env.countRows(t, &models.Activity{}, "user_id = ? AND type = ?", user.ID, models.ActivityAchievementUnlocked))
}

func TestEngine_UnlockRewardCanCascade(t *testing.T) {
	env := newTestEnv(t, []CatalogEntry{
		{"First Focus", "Complete your first focus session", models.CategoryFocus, gamification.MissionsCompleted{Count: 1, MissionType: "FOCUS"}, 500},
		{"Rising Star", "Earn 500 XP", models.CategoryXP, gamification.TotalXP{XP: 500}, 50},
	})
	user := env.register(t, "grace")

	out := env.completeFocus(t, user.ID, 10)

	codes := make([]string, 0, len(out.NewlyUnlocked))
	for _, a := range out.NewlyUnlocked {
		codes = append(codes, a.Code)
	}
	assert.ElementsMatch(t, []string{"first-focus", "rising-star"}, codes)
	assert.Equal(t, int64(60+500+50), out.XPAwarded)
}

func TestEngine_ConsecutiveFocusChallengeCompletesOnce(t *testing.T) {
	env := newTestEnv(t, nil,
		ChallengeTemplate{"Focus Triple", "3 in a row", gamification.FocusSessions{Count: 3, Consecutive: true}, 75})
	user := env.register(t, "linus")

	out := env.completeFocus(t, user.ID, 25)
	require.NotNil(t, out.DailyChallenge)
	assert.Equal(t, models.ChallengeInProgress, out.DailyChallenge.Progress.Status)
	assert.Equal(t, int64(1), out.DailyChallenge.Progress.Progress)

	out = env.completeFocus(t, user.ID, 25)
	assert.False(t, out.DailyChallenge.NewlyCompleted)

	out = env.completeFocus(t, user.ID, 25)
	require.NotNil(t, out.DailyChallenge)
	assert.True(t, out.DailyChallenge.NewlyCompleted)
	assert.Equal(t, models.ChallengeCompleted, out.DailyChallenge.Progress.Status)
	assert.Equal(t, 100.0, out.DailyChallenge.Percent)
	assert.Equal(t, int64(75+75), out.XPAwarded)

	out = env.completeFocus(t, user.ID, 25)
	assert.False(t, out.DailyChallenge.NewlyCompleted)
	assert.Equal(t, models.ChallengeCompleted, out.DailyChallenge.Progress.Status)

	res, _, err := env.engine.UpdateDailyChallenge(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, res.NewlyCompleted)

	assert.Equal(t, int64(4*75+75), env.reload(t, user.ID).TotalXP)
	assert.Equal(t, int64(1), env.countRows(t, &models.Activity{}, "user_id = ? AND type = ?", user.ID, models.ActivityChallengeCompleted))
}

func TestEngine_AbandonBreaksConsecutiveRunWithoutLosingProgress(t *testing.T) {
	env := newTestEnv(t, nil,
		ChallengeTemplate{"Focus Triple", "3 in a row", gamification.FocusSessions{Count: 3, Consecutive: true}, 75})
	user := env.register(t, "barbara")

	env.completeFocus(t, user.ID, 25)
	env.completeFocus(t, user.ID, 25)
	out := env.abandonFocus(t, user.ID)
	require.NotNil(t, out.DailyChallenge)
	// stored progress never goes backwards
	assert.Equal(t, int64(2), out.DailyChallenge.Progress.Progress)
	assert.Zero(t, out.XPAwarded)

	out = env.completeFocus(t, user.ID, 25)
	assert.False(t, out.DailyChallenge.NewlyCompleted)
	out = env.completeFocus(t, user.ID, 25)
	assert.False(t, out.DailyChallenge.NewlyCompleted)
	out = env.completeFocus(t, user.ID, 25)
	assert.True(t, out.DailyChallenge.NewlyCompleted)
}

func TestEngine_ConcurrentEventsCountOneStreakDay(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "ken")

	const n = 10
	outs := make([]*Outcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = env.engine.Apply(context.Background(), Event{
				UserID: user.ID,
				Kind:   EventNotebookEntry,
				XP:     10,
				At:     env.now,
			})
		}(i)
	}
	wg.Wait()

	started := 0
	for i := range outs {
		require.NoError(t, errs[i])
		if outs[i].StreakChange == gamification.StreakStarted {
			started++
		}
	}
	assert.Equal(t, 1, started)

	u := env.reload(t, user.ID)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 1, u.LongestStreak)
	assert.Equal(t, int64(n*10), u.TotalXP)
	assert.Zero(t, env.locker.held())
}

func TestEngine_StreakFollowsUserTimezone(t *testing.T) {
	env := newTestEnv(t, nil)
	user, err := env.users.Register(RegisterInput{Name: "nyc", Email: "nyc@example.com", Timezone: "America/New_York"})
	require.NoError(t, err)

	// 23:00 on March 9th in New York
	late := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	_, err = env.engine.Apply(context.Background(), Event{UserID: user.ID, Kind: EventNotebookEntry, At: late})
	require.NoError(t, err)

	out, err := env.engine.Apply(context.Background(), Event{UserID: user.ID, Kind: EventNotebookEntry, At: late.Add(11 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, gamification.StreakExtended, out.StreakChange)
	assert.Equal(t, 2, out.Streak.CurrentStreak)
}

func TestEngine_MalformedRequirementIsSkipped(t *testing.T) {
	env := newTestEnv(t, []CatalogEntry{
		{"First Focus", "Complete your first focus session", models.CategoryFocus, gamification.MissionsCompleted{Count: 1, MissionType: "FOCUS"}, 25},
	})
	require.NoError(t, env.db.Create(&models.Achievement{
		Code:        "broken",
		Name:        "Broken",
		Category:    models.CategoryXP,
		Requirement: datatypes.JSON(`{"type":"BOGUS","count":1}`),
		XPReward:    5,
	}).Error)
	user := env.register(t, "margaret")

	out := env.completeFocus(t, user.ID, 5)

	require.Len(t, out.NewlyUnlocked, 1)
	assert.Equal(t, "first-focus", out.NewlyUnlocked[0].Code)

	fx, ok := effectFor(out, "achievement:broken")
	require.True(t, ok)
	assert.Equal(t, gamification.EffectSkipped, fx.Status)
	assert.Contains(t, fx.Reason, "invalid requirement")

	fx, ok = effectFor(out, stepAchievements)
	require.True(t, ok)
	assert.Equal(t, gamification.EffectApplied, fx.Status)
}

func TestEngine_FailingChallengeStepKeepsXP(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.db.Create(&models.DailyChallenge{
		Date:        gamification.FormatDate(env.now),
		Type:        "BOGUS",
		Title:       "Broken",
		Requirement: datatypes.JSON(`{"type":"BOGUS"}`),
		XPReward:    999,
	}).Error)
	user := env.register(t, "dennis")

	out, err := env.engine.Apply(context.Background(), Event{UserID: user.ID, Kind: EventNotebookEntry, XP: 10, At: env.now})
	require.NoError(t, err)

	fx, ok := effectFor(out, stepDailyChallenge)
	require.True(t, ok)
	assert.Equal(t, gamification.EffectSkipped, fx.Status)
	assert.NotEmpty(t, fx.Reason)
	assert.Nil(t, out.DailyChallenge)

	u := env.reload(t, user.ID)
	assert.Equal(t, int64(10), u.TotalXP)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, int64(0), env.countRows(t, &models.DailyChallengeProgress{}, "user_id = ?", user.ID))
}

func TestEngine_LevelUpIsRecorded(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "alan")

	out, err := env.engine.Apply(context.Background(), Event{UserID: user.ID, Kind: EventXPGrant, XP: 500, Source: "bonus"})
	require.NoError(t, err)

	assert.True(t, out.LeveledUp)
	assert.Equal(t, 3, out.Level.Level)
	assert.Equal(t, int64(500), out.Level.TotalXP)
	// xp grants are not activity for the streak
	assert.Zero(t, out.Streak.CurrentStreak)
	assert.Equal(t, int64(1), env.countRows(t, &models.Activity{}, "user_id = ? AND type = ?", user.ID, models.ActivityLevelUp))
	assert.Equal(t, int64(1), env.countRows(t, &models.Activity{}, "user_id = ? AND type = ?", user.ID, models.ActivityXPGranted))
}

func TestEngine_UnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Apply(context.Background(), Event{UserID: "missing", Kind: EventCheck})
	assert.ErrorIs(t, err, ErrNotFound)

	out := env.engine.Notify(context.Background(), Event{UserID: "missing", Kind: EventNotebookEntry, XP: 10})
	fx, ok := effectFor(out, stepEngine)
	require.True(t, ok)
	assert.Equal(t, gamification.EffectSkipped, fx.Status)
}

func TestEngine_LateEventAcrossMidnightKeepsStreak(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "grace")
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for day := 0; day < 5; day++ {
		_, err := env.engine.Apply(ctx, Event{UserID: user.ID, Kind: EventNotebookEntry, At: start.AddDate(0, 0, day)})
		require.NoError(t, err)
	}

	// the after-midnight request wins the lock
	out, err := env.engine.Apply(ctx, Event{UserID: user.ID, Kind: EventNotebookEntry, At: time.Date(2026, 3, 6, 0, 0, 1, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Streak.CurrentStreak)

	out, err = env.engine.Apply(ctx, Event{UserID: user.ID, Kind: EventNotebookEntry, At: time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, gamification.StreakUnchanged, out.StreakChange)
	assert.Equal(t, 6, out.Streak.CurrentStreak)
	assert.Equal(t, 6, out.Streak.LongestStreak)

	u := env.reload(t, user.ID)
	assert.Equal(t, 6, u.CurrentStreak)
	assert.Equal(t, "2026-03-06", gamification.FormatDate(*u.LastActiveDate))
}

func TestEngine_UnstampedEventUsesClockAtApply(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "barbara")

	env.now = time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)
	_, err := env.engine.Apply(context.Background(), Event{UserID: user.ID, Kind: EventNotebookEntry})
	require.NoError(t, err)

	var act models.Activity
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", user.ID, models.ActivityNotebookEntry).First(&act).Error)
	assert.True(t, act.CreatedAt.Equal(env.now))
	assert.Equal(t, "2026-03-11", gamification.FormatDate(*env.reload(t, user.ID).LastActiveDate))
}

func TestEngine_ChallengeNotReportedWhenItsActivityFails(t *testing.T) {
	env := newTestEnv(t, nil,
		ChallengeTemplate{"One Note", "Write a notebook entry", gamification.NotebookEntries{Count: 1}, 30})
	user := env.register(t, "edsger")

	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("fail_challenge_activity", func(tx *gorm.DB) {
		if a, ok := tx.Statement.Dest.(*models.Activity); ok && a.Type == models.ActivityChallengeCompleted {
			tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := env.notebook.Create(user.ID, CreateNotebookEntryInput{Title: "first", Content: "hello"})
	require.NoError(t, err)
	out, err := env.engine.Apply(context.Background(), Event{UserID: user.ID, Kind: EventNotebookEntry, XP: 10, At: env.now})
	require.NoError(t, err)

	fx, ok := effectFor(out, stepDailyChallenge)
	require.True(t, ok)
	assert.Equal(t, gamification.EffectSkipped, fx.Status)
	assert.Nil(t, out.DailyChallenge)
	assert.Equal(t, int64(10), out.XPAwarded)
	assert.Equal(t, int64(10), env.reload(t, user.ID).TotalXP)
	assert.Equal(t, int64(0), env.countRows(t, &models.DailyChallengeProgress{}, "user_id = ? AND status = ?", user.ID, models.ChallengeCompleted))
}
