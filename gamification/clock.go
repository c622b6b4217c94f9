package gamification

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// DayPolicy decides which midnight closes a challenge day.
type DayPolicy string

const (
	DayPolicyUTC  DayPolicy = "utc"
	DayPolicyUser DayPolicy = "user"
)

// ParseDayPolicy falls back to UTC for anything it does not recognise.
func ParseDayPolicy(s string) DayPolicy {
	if DayPolicy(strings.ToLower(strings.TrimSpace(s))) == DayPolicyUser {
		return DayPolicyUser
	}
	return DayPolicyUTC
}

// LoadLocation resolves an IANA name. Empty or unknown names resolve to UTC.
func LoadLocation(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidTimezone reports whether tz names a loadable IANA zone.
func ValidTimezone(tz string) bool {
	if strings.TrimSpace(tz) == "" || tz == "Local" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LocalDate returns the calendar date of now as seen in tz, encoded as
// midnight UTC of that year/month/day.
func LocalDate(now time.Time, tz string) time.Time {
	y, m, d := now.In(LoadLocation(tz)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDate strips the time of day from an already-normalized date,
// keeping the year/month/day it was stored with.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(b).Sub(CalendarDate(a)).Hours() / 24)
}

// DayWindow returns the [start, end) instants covering date in loc.
func DayWindow(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// ChallengeDay resolves the challenge date for a user under the policy and
// the location whose midnight bounds it.
func (p DayPolicy) ChallengeDay(now time.Time, userTZ string) (time.Time, *time.Location) {
	if p == DayPolicyUser {
		return LocalDate(now, userTZ), LoadLocation(userTZ)
	}
	return LocalDate(now, "UTC"), time.UTC
}

// FormatDate renders a calendar date with DateLayout.
func FormatDate(t time.Time) string {
	return CalendarDate(t).Format(DateLayout)
}
