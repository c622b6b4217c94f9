package gamification

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// RequirementKind is the "type" discriminator of a requirement document.
type RequirementKind string

const (
	KindMissionsCompleted RequirementKind = "MISSIONS_COMPLETED"
	KindFocusSessions     RequirementKind = "FOCUS_SESSIONS"
	KindFocusDuration     RequirementKind = "FOCUS_DURATION"
	KindFocusMinutes      RequirementKind = "FOCUS_MINUTES"
	KindLearningCompleted RequirementKind = "LEARNING_COMPLETED"
	KindLearningInOneDay  RequirementKind = "LEARNING_IN_ONE_DAY"
	KindJobApplications   RequirementKind = "JOB_APPLICATIONS"
	KindNotebookEntries   RequirementKind = "NOTEBOOK_ENTRIES"
	KindStreakDays        RequirementKind = "STREAK_DAYS"
	KindTotalXP           RequirementKind = "TOTAL_XP"
)

var ErrInvalidRequirement = errors.New("invalid requirement")

// Requirement is a closed union; the concrete types below are the only implementations.
type Requirement interface {
	Kind() RequirementKind
	Threshold() int64
	requirement()
}

type MissionsCompleted struct {
	Count       int64
	MissionType string
}

type FocusSessions struct {
	Count       int64
	Consecutive bool
}

type FocusDuration struct{ Minutes int64 }

type FocusMinutes struct{ Minutes int64 }

type LearningCompleted struct{ Count int64 }

type LearningInOneDay struct{ Count int64 }

type JobApplications struct {
	Count  int64
	Status string
}

type NotebookEntries struct{ Count int64 }

type StreakDays struct{ Days int64 }

type TotalXP struct{ XP int64 }

func (MissionsCompleted) Kind() RequirementKind { return KindMissionsCompleted }
func (FocusSessions) Kind() RequirementKind     { return KindFocusSessions }
func (FocusDuration) Kind() RequirementKind     { return KindFocusDuration }
func (FocusMinutes) Kind() RequirementKind      { return KindFocusMinutes }
func (LearningCompleted) Kind() RequirementKind { return KindLearningCompleted }
func (LearningInOneDay) Kind() RequirementKind  { return KindLearningInOneDay }
func (JobApplications) Kind() RequirementKind   { return KindJobApplications }
func (NotebookEntries) Kind() RequirementKind   { return KindNotebookEntries }
func (StreakDays) Kind() RequirementKind        { return KindStreakDays }
func (TotalXP) Kind() RequirementKind           { return KindTotalXP }

func (r MissionsCompleted) Threshold() int64 { return r.Count }
func (r FocusSessions) Threshold() int64     { return r.Count }
func (r FocusDuration) Threshold() int64     { return r.Minutes }
func (r FocusMinutes) Threshold() int64      { return r.Minutes }
func (r LearningCompleted) Threshold() int64 { return r.Count }
func (r LearningInOneDay) Threshold() int64  { return r.Count }
func (r JobApplications) Threshold() int64   { return r.Count }
func (r NotebookEntries) Threshold() int64   { return r.Count }
func (r StreakDays) Threshold() int64        { return r.Days }
func (r TotalXP) Threshold() int64           { return r.XP }

func (MissionsCompleted) requirement() {}
func (FocusSessions) requirement()     {}
func (FocusDuration) requirement()     {}
func (FocusMinutes) requirement()      {}
func (LearningCompleted) requirement() {}
func (LearningInOneDay) requirement()  {}
func (JobApplications) requirement()   {}
func (NotebookEntries) requirement()   {}
func (StreakDays) requirement()        {}
func (TotalXP) requirement()           {}

// Mission types and job application status buckets accepted as filters.
var (
	MissionTypes = map[string]bool{
		"FOCUS": true, "DEEP_WORK": true, "LEARNING": true, "JOB_SEARCH": true, "NETWORKING": true,
	}
	ApplicationStatuses = map[string]bool{
		"WISHLIST": true, "APPLIED": true, "INTERVIEWING": true, "OFFER": true, "REJECTED": true, "ACCEPTED": true,
	}
)

type requirementDoc struct {
	Type        string `json:"type"`
	Count       *int64 `json:"count"`
	Minutes     *int64 `json:"minutes"`
	Days        *int64 `json:"days"`
	XP          *int64 `json:"xp"`
	MissionType string `json:"missionType"`
	Status      string `json:"status"`
	Consecutive bool   `json:"consecutive"`
}

// ParseRequirement decodes and validates a requirement document. Unknown
// types and negative or non-positive thresholds are rejected.
func ParseRequirement(raw []byte) (Requirement, error) {
	var doc requirementDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequirement, err)
	}

	kind := RequirementKind(strings.ToUpper(strings.TrimSpace(doc.Type)))
	switch kind {
	case KindMissionsCompleted:
		n, err := threshold("count", doc.Count)
		if err != nil {
			return nil, err
		}
		mt := strings.ToUpper(strings.TrimSpace(doc.MissionType))
		if mt != "" && !MissionTypes[mt] {
			return nil, fmt.Errorf("%w: unknown missionType %q", ErrInvalidRequirement, doc.MissionType)
		}
		return MissionsCompleted{Count: n, MissionType: mt}, nil
	case KindFocusSessions:
		n, err := threshold("count", doc.Count)
		if err != nil {
			return nil, err
		}
		return FocusSessions{Count: n, Consecutive: doc.Consecutive}, nil
	case KindFocusDuration:
		n, err := threshold("minutes", doc.Minutes)
		if err != nil {
			return nil, err
		}
		return FocusDuration{Minutes: n}, nil
	case KindFocusMinutes:
		n, err := threshold("minutes", doc.Minutes)
		if err != nil {
			return nil, err
		}
		return FocusMinutes{Minutes: n}, nil
	case KindLearningCompleted:
		n, err := threshold("count", doc.Count)
		if err != nil {
			return nil, err
		}
		return LearningCompleted{Count: n}, nil
	case KindLearningInOneDay:
		n, err := threshold("count", doc.Count)
		if err != nil {
			return nil, err
		}
		return LearningInOneDay{Count: n}, nil
	case KindJobApplications:
		n, err := threshold("count", doc.Count)
		if err != nil {
			return nil, err
		}
		st := strings.ToUpper(strings.TrimSpace(doc.Status))
		if st != "" && !ApplicationStatuses[st] {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequirement, doc.Status)
		}
		return JobApplications{Count: n, Status: st}, nil
	case KindNotebookEntries:
		n, err := threshold("count", doc.Count)
		if err != nil {
			return nil, err
		}
		return NotebookEntries{Count: n}, nil
	case KindStreakDays:
		n, err := threshold("days", doc.Days)
		if err != nil {
			return nil, err
		}
		return StreakDays{Days: n}, nil
	case KindTotalXP:
		n, err := threshold("xp", doc.XP)
		if err != nil {
			return nil, err
		}
		return TotalXP{XP: n}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidRequirement)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRequirement, doc.Type)
	}
}

// threshold defaults an absent field to 1.
func threshold(field string, v *int64) (int64, error) {
	if v == nil {
		return 1, nil
	}
	if *v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidRequirement, field, *v)
	}
	return *v, nil
}

// MarshalRequirement renders r back to its canonical document.
func MarshalRequirement(r Requirement) ([]byte, error) {
	doc := map[string]any{"type": string(r.Kind())}
	switch v := r.(type) {
	case MissionsCompleted:
		doc["count"] = v.Count
		if v.MissionType != "" {
			doc["missionType"] = v.MissionType
		}
	case FocusSessions:
		doc["count"] = v.Count
		if v.Consecutive {
			doc["consecutive"] = true
		}
	case FocusDuration:
		doc["minutes"] = v.Minutes
	case FocusMinutes:
		doc["minutes"] = v.Minutes
	case LearningCompleted:
		doc["count"] = v.Count
	case LearningInOneDay:
		doc["count"] = v.Count
	case JobApplications:
		doc["count"] = v.Count
		if v.Status != "" {
			doc["status"] = v.Status
		}
	case NotebookEntries:
		doc["count"] = v.Count
	case StreakDays:
		doc["days"] = v.Days
	case TotalXP:
		doc["xp"] = v.XP
	default:
		return nil, fmt.Errorf("%w: unsupported %T", ErrInvalidRequirement, r)
	}
	return json.Marshal(doc)
}

// MustRequirement is for statically known catalog entries.
func MustRequirement(r Requirement) []byte {
	b, err := MarshalRequirement(r)
	if err != nil {
		panic(err)
	}
	return b
}

// Satisfied reports whether value meets the requirement's threshold.
func Satisfied(r Requirement, value int64) bool {
	return value >= divisor(r)
}

// ProgressPercent is min(value / threshold * 100, 100), with a divisor of 1 when
// the threshold is missing.
func ProgressPercent(r Requirement, value int64) float64 {
	pct := float64(value) / float64(divisor(r)) * 100
	return math.Min(math.Max(pct, 0), 100)
}

func divisor(r Requirement) int64 {
	if r == nil || r.Threshold() <= 0 {
		return 1
	}
	return r.Threshold()
}
