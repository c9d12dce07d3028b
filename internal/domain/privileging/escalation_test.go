package privileging

import (
	"errors"
	"testing"
	"time"
)

var testPolicy = EscalationPolicy{WarningDays: 3, EscalationDays: 7, MaxLevel: 2}

func TestEvaluateEscalationWarningOnce(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(4 * 24 * time.Hour)

	out := EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start}, now)
	if !out.FireWarning || out.FireEscalation || out.Level != 0 || out.DaysPending != 4 {
		t.Fatalf("first sweep outcome = %+v", out)
	}

	again := EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start, Warned: out.Warned}, now)
	if again.FireWarning || again.Changed(EscalationState{ReceivedAt: start, Warned: true}) {
		t.Fatalf("second sweep outcome = %+v", again)
	}
}

func TestEvaluateEscalationTiers(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	out := EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start, Warned: true}, start.Add(7*24*time.Hour))
	if out.FireEscalation || out.Level != 0 {
		t.Fatalf("at threshold outcome = %+v", out)
	}

	out = EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start, Warned: true}, start.Add(8*24*time.Hour))
	if !out.FireEscalation || out.Level != 1 {
		t.Fatalf("first breach outcome = %+v", out)
	}

	repeat := EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start, Level: 1, Warned: true}, start.Add(10*24*time.Hour))
	if repeat.FireEscalation || repeat.Level != 1 {
		t.Fatalf("same tier outcome = %+v", repeat)
	}

	out = EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start, Level: 1, Warned: true}, start.Add(60*24*time.Hour))
	if !out.FireEscalation || out.Level != 2 {
		t.Fatalf("capped outcome = %+v", out)
	}

	capped := EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start, Level: 2, Warned: true}, start.Add(90*24*time.Hour))
	if capped.FireEscalation || capped.Level != 2 {
		t.Fatalf("beyond cap outcome = %+v", capped)
	}
}

func TestEvaluateEscalationSkipsWarningWhenBreached(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := EvaluateEscalation(testPolicy, EscalationState{ReceivedAt: start}, start.Add(9*24*time.Hour))
	if out.FireWarning || !out.FireEscalation {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestDaysPendingClockSkew(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if got := DaysPending(now.Add(time.Hour), now); got != 0 {
		t.Fatalf("DaysPending(future) = %d", got)
	}
	if got := DaysPending(now.Add(-47*time.Hour), now); got != 1 {
		t.Fatalf("DaysPending(47h) = %d", got)
	}
}

func TestEscalationPolicyValidate(t *testing.T) {
	if err := testPolicy.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	bad := EscalationPolicy{WarningDays: 7, EscalationDays: 7, MaxLevel: 1}
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v", err)
	}
}
