package gamification

// EffectStatus is the result of one non-critical step attached to a primary write.
type EffectStatus string

const (
	EffectApplied   EffectStatus = "applied"
	EffectUnchanged EffectStatus = "unchanged"
	EffectSkipped   EffectStatus = "skipped"
)

// SideEffect records what a gamification step did and, when skipped, why.
type SideEffect struct {
	Step   string       `json:"step"`
	Status EffectStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

func Applied(step string) SideEffect   { return SideEffect{Step: step, Status: EffectApplied} }
func Unchanged(step string) SideEffect { return SideEffect{Step: step, Status: EffectUnchanged} }

func Skipped(step string, err error) SideEffect {
	reason := "unknown"
	if err != nil {
		reason = err.Error()
	}
	return SideEffect{Step: step, Status: EffectSkipped, Reason: reason}
}
