package gamification

import "math"

// BaseXPPerLevel scales the level curve: reaching level L+1 takes L² * BaseXPPerLevel lifetime XP.
const BaseXPPerLevel = 100

// XPWeights are the base XP amounts for primary actions.
type XPWeights struct {
	MissionCompleted  int64
	PerFocusMinute    int64
	JobApplication    int64
	NotebookEntry     int64
	LearningCompleted int64
}

var DefaultXPWeights = XPWeights{
	MissionCompleted:  50,
	PerFocusMinute:    1,
	JobApplication:    25,
	NotebookEntry:     10,
	LearningCompleted: 40,
}

// MissionXP is the base award for a completed mission of the given length.
func (w XPWeights) MissionXP(actualMinutes int) int64 {
	if actualMinutes < 0 {
		actualMinutes = 0
	}
	return w.MissionCompleted + w.PerFocusMinute*int64(actualMinutes)
}

// LevelForXP returns floor(sqrt(totalXP / 100)) + 1.
func LevelForXP(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}
	level := int(math.Floor(math.Sqrt(float64(totalXP)/BaseXPPerLevel))) + 1
	// guard float rounding right at a boundary
	for level > 1 && XPThresholdForLevel(level-1) > totalXP {
		level--
	}
	for level < MaxLevel && XPThresholdForLevel(level) <= totalXP {
		level++
	}
	return level
}

// MaxLevel is the highest level whose start fits in an int64 XP total.
const MaxLevel = 303700050

// XPThresholdForLevel is the lifetime XP at which level ends and level+1 begins.
// It saturates at math.MaxInt64 once the square no longer fits.
func XPThresholdForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	l := int64(level)
	if l > math.MaxInt64/BaseXPPerLevel/l {
		return math.MaxInt64
	}
	return l * l * BaseXPPerLevel
}

// XPIntoLevel is the XP earned since the current level began.
func XPIntoLevel(totalXP int64) int64 {
	if totalXP <= 0 {
		return 0
	}
	return totalXP - XPThresholdForLevel(LevelForXP(totalXP)-1)
}

// XPProgressWithinLevel returns how far totalXP is through its level, 0-100.
func XPProgressWithinLevel(totalXP int64) float64 {
	level := LevelForXP(totalXP)
	floor := XPThresholdForLevel(level - 1)
	ceil := XPThresholdForLevel(level)
	span := ceil - floor
	if span <= 0 {
		return 0
	}
	pct := float64(max(totalXP, 0)-floor) / float64(span) * 100
	return math.Min(math.Max(pct, 0), 100)
}

// LevelSnapshot is the derived view of a lifetime XP total.
type LevelSnapshot struct {
	Level          int     `json:"level"`
	TotalXP        int64   `json:"total_xp"`
	XP             int64   `json:"xp"`
	XPForNextLevel int64   `json:"xp_for_next_level"`
	ProgressPct    float64 `json:"progress_pct"`
}

func SnapshotFor(totalXP int64) LevelSnapshot {
	level := LevelForXP(totalXP)
	return LevelSnapshot{
		Level:          level,
		TotalXP:        totalXP,
		XP:             XPIntoLevel(totalXP),
		XPForNextLevel: XPThresholdForLevel(level) - max(totalXP, 0),
		ProgressPct:    XPProgressWithinLevel(totalXP),
	}
}
