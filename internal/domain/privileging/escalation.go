package privileging

import (
	"fmt"
	"time"
)

// EscalationPolicy holds the SLA thresholds in whole days.
type EscalationPolicy struct {
	WarningDays    int
	EscalationDays int
	MaxLevel       int
}

func (p EscalationPolicy) Validate() error {
	if p.WarningDays <= 0 || p.EscalationDays <= 0 {
		return fmt.Errorf("%w: escalation thresholds must be positive", ErrValidation)
	}
	if p.WarningDays >= p.EscalationDays {
		return fmt.Errorf("%w: warning threshold must be below escalation threshold", ErrValidation)
	}
	if p.MaxLevel <= 0 {
		return fmt.Errorf("%w: max escalation level must be positive", ErrValidation)
	}
	return nil
}

// EscalationState is what a sweep knows about one open escalation record.
type EscalationState struct {
	ReceivedAt time.Time
	Level      int
	Warned     bool
}

type EscalationOutcome struct {
	DaysPending int
	Level       int
	Warned      bool
	// FireWarning and FireEscalation are set only on the sweep that crosses
	// the threshold, so repeated sweeps do not notify twice.
	FireWarning    bool
	FireEscalation bool
}

func (o EscalationOutcome) Changed(prev EscalationState) bool {
	return o.Level != prev.Level || o.Warned != prev.Warned
}

// DaysPending counts whole days elapsed; a clock behind receivedAt gives 0.
func DaysPending(receivedAt time.Time, now time.Time) int {
	if !now.After(receivedAt) {
		return 0
	}
	return int(now.Sub(receivedAt) / (24 * time.Hour))
}

// EvaluateEscalation computes the breach tier for one record. The level never
// decreases and is capped at MaxLevel.
func EvaluateEscalation(policy EscalationPolicy, state EscalationState, now time.Time) EscalationOutcome {
	days := DaysPending(state.ReceivedAt, now)
	out := EscalationOutcome{
		DaysPending: days,
		Level:       state.Level,
		Warned:      state.Warned,
	}

	tier := 0
	if policy.EscalationDays > 0 {
		for k := 1; k <= policy.MaxLevel; k++ {
			if days > k*policy.EscalationDays {
				tier = k
			}
		}
	}

	if tier > state.Level {
		out.Level = tier
		out.FireEscalation = true
		return out
	}

	if state.Level == 0 && !state.Warned && policy.WarningDays > 0 && days > policy.WarningDays {
		out.Warned = true
		out.FireWarning = true
	}
	return out
}
