package gamification

import "time"

// StreakState is the slice of a user row the streak tracker reads and writes.
type StreakState struct {
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
}

// StreakChange describes what UpdateStreak did.
type StreakChange string

const (
	StreakStarted   StreakChange = "started"
	StreakExtended  StreakChange = "extended"
	StreakReset     StreakChange = "reset"
	StreakUnchanged StreakChange = "unchanged"
)

// UpdateStreak applies one qualifying activity on today (a calendar date from
// LocalDate). It is idempotent within a day.
func UpdateStreak(state StreakState, today time.Time) (StreakState, StreakChange) {
	today = CalendarDate(today)
	next := state

	if state.LastActiveDate == nil {
		next.CurrentStreak = 1
		next.LongestStreak = max(state.LongestStreak, 1)
		next.LastActiveDate = &today
		return next, StreakStarted
	}

	diff := DaysBetween(*state.LastActiveDate, today)
	switch {
	case diff == 0:
		return state, StreakUnchanged
	case diff == 1:
		next.CurrentStreak = state.CurrentStreak + 1
		next.LongestStreak = max(state.LongestStreak, next.CurrentStreak)
		next.LastActiveDate = &today
		return next, StreakExtended
	default:
		// gap of two or more days, or a clock that went backwards
		next.CurrentStreak = 1
		next.LongestStreak = max(state.LongestStreak, 1)
		next.LastActiveDate = &today
		return next, StreakReset
	}
}
