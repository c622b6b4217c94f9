package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-quest/gamification"
	"career-quest/models"
)

func TestAggregator_JobApplicationBuckets(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "ada")

	create := func(status models.ApplicationStatus) *models.JobApplication {
		ja, err := env.apps.Create(user.ID, CreateApplicationInput{Company: "Acme", Position: "Engineer", Status: status}, env.tick())
		require.NoError(t, err)
		return ja
	}
	create(models.ApplicationApplied)
	create(models.ApplicationWishlist)
	interviewing := create(models.ApplicationApplied)
	rejected := create(models.ApplicationApplied)

	_, changed, err := env.apps.UpdateStatus(user.ID, interviewing.ID, models.ApplicationInterviewing, env.tick())
	require.NoError(t, err)
	require.True(t, changed)
	_, _, err = env.apps.UpdateStatus(user.ID, rejected.ID, models.ApplicationRejected, env.tick())
	require.NoError(t, err)

	tests := []struct {
		status string
		want   int64
	}{
		{"", 4},
		{"WISHLIST", 1},
		{"APPLIED", 3},
		{"INTERVIEWING", 1},
		{"OFFER", 0},
		{"REJECTED", 1},
	}
	for _, tt := range tests {
		t.Run("status="+tt.status, func(t *testing.T) {
			got, err := Aggregator{}.Value(env.db, user, gamification.JobApplications{Count: 1, Status: tt.status}, LifetimeScope(user))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregator_StageReachedSurvivesRejection(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "ada")

	ja, err := env.apps.Create(user.ID, CreateApplicationInput{Company: "Acme", Position: "Engineer"}, env.now)
	require.NoError(t, err)
	_, _, err = env.apps.UpdateStatus(user.ID, ja.ID, models.ApplicationOffer, env.tick())
	require.NoError(t, err)
	ja, _, err = env.apps.UpdateStatus(user.ID, ja.ID, models.ApplicationRejected, env.tick())
	require.NoError(t, err)
	assert.Equal(t, 3, ja.StageReached)

	got, err := Aggregator{}.Value(env.db, user, gamification.JobApplications{Count: 1, Status: "OFFER"}, LifetimeScope(user))
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestAggregator_FocusRunsAndMinutes(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "ada")

	env.completeFocus(t, user.ID, 20)
	env.completeFocus(t, user.ID, 95)
	env.abandonFocus(t, user.ID)
	env.completeFocus(t, user.ID, 30)

	deep, err := env.missions.Create(user.ID, CreateMissionInput{Title: "deep", Type: models.MissionDeepWork})
	require.NoError(t, err)
	minutes := 200
	_, err = env.missions.Complete(user.ID, deep.ID, CompleteMissionInput{ActualMinutes: &minutes}, env.tick())
	require.NoError(t, err)

	scope := LifetimeScope(user)
	value := func(r gamification.Requirement) int64 {
		got, err := Aggregator{}.Value(env.db, user, r, scope)
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, int64(2), value(gamification.FocusSessions{Count: 3, Consecutive: true}))
	assert.Equal(t, int64(3), value(gamification.FocusSessions{Count: 3}))
	assert.Equal(t, int64(95), value(gamification.FocusDuration{Minutes: 90}))
	assert.Equal(t, int64(145), value(gamification.FocusMinutes{Minutes: 1000}))
	assert.Equal(t, int64(4), value(gamification.MissionsCompleted{Count: 1}))
	assert.Equal(t, int64(1), value(gamification.MissionsCompleted{Count: 1, MissionType: "DEEP_WORK"}))
}

func TestAggregator_DayScopeExcludesOtherDays(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "ada")

	env.completeFocus(t, user.ID, 20)
	env.now = env.now.AddDate(0, 0, 1)
	env.completeFocus(t, user.ID, 40)

	day := gamification.CalendarDate(env.now)
	got, err := Aggregator{}.Value(env.db, user, gamification.FocusMinutes{Minutes: 60}, DayScope(day, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(40), got)

	xp, err := Aggregator{}.Value(env.db, user, gamification.TotalXP{XP: 150}, DayScope(day, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, gamification.DefaultXPWeights.MissionXP(40), xp)
}

func TestAggregator_LearningInOneDay(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "ada")

	complete := func(at time.Time) {
		lp, err := env.learning.Create(user.ID, CreateLearningInput{ResourceTitle: "Go in Action"})
		require.NoError(t, err)
		_, err = env.learning.Complete(user.ID, lp.ID, at)
		require.NoError(t, err)
	}
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	complete(day1)
	complete(day1.Add(2 * time.Hour))
	complete(day1.AddDate(0, 0, 1))

	got, err := Aggregator{}.Value(env.db, user, gamification.LearningInOneDay{Count: 3}, LifetimeScope(user))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	total, err := Aggregator{}.Value(env.db, user, gamification.LearningCompleted{Count: 3}, LifetimeScope(user))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestAggregator_StreakDays(t *testing.T) {
	user := &models.User{CurrentStreak: 2, LongestStreak: 9}

	lifetime, err := Aggregator{}.Value(nil, user, gamification.StreakDays{Days: 7}, Scope{})
	require.NoError(t, err)
	assert.Equal(t, int64(9), lifetime)

	daily, err := Aggregator{}.Value(nil, user, gamification.StreakDays{Days: 7}, Scope{Daily: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), daily)
}
