package privileging

import (
	"errors"
	"testing"
)

func threeLevelLedger() []LedgerEntry {
	return []LedgerEntry{
		{Level: LevelDepartmentHead, ReviewerID: "dh", Status: RecordPending},
		{Level: LevelCommittee, ReviewerID: "cm", Status: RecordPending},
		{Level: LevelMedicalDirector, ReviewerID: "md", Status: RecordPending},
	}
}

func TestApplyDecisionWalksChain(t *testing.T) {
	entries := threeLevelLedger()

	tr, err := ApplyDecision(entries, 0, DecisionApproved)
	if err != nil {
		t.Fatalf("ApplyDecision(A) error = %v", err)
	}
	if tr.Status != StatusInReview || tr.Active != 1 {
		t.Fatalf("after A status=%s active=%d", tr.Status, tr.Active)
	}
	if entries[0].Status != RecordPending {
		t.Fatalf("ApplyDecision() mutated input")
	}

	tr, err = ApplyDecision(tr.Entries, 1, DecisionApproved)
	if err != nil {
		t.Fatalf("ApplyDecision(B) error = %v", err)
	}
	if tr.Status != StatusInReview || tr.Active != 2 {
		t.Fatalf("after B status=%s active=%d", tr.Status, tr.Active)
	}

	tr, err = ApplyDecision(tr.Entries, 2, DecisionApproved)
	if err != nil {
		t.Fatalf("ApplyDecision(C) error = %v", err)
	}
	if tr.Status != StatusApproved || tr.Active != -1 {
		t.Fatalf("after C status=%s active=%d", tr.Status, tr.Active)
	}
}

func TestApplyDecisionRejectShortCircuits(t *testing.T) {
	tr, err := ApplyDecision(threeLevelLedger(), 0, DecisionApproved)
	if err != nil {
		t.Fatalf("ApplyDecision(A) error = %v", err)
	}
	tr, err = ApplyDecision(tr.Entries, 1, DecisionRejected)
	if err != nil {
		t.Fatalf("ApplyDecision(B) error = %v", err)
	}
	if tr.Status != StatusRejected || tr.Active != -1 {
		t.Fatalf("after reject status=%s active=%d", tr.Status, tr.Active)
	}
	if tr.Entries[2].Status != RecordPending {
		t.Fatalf("remaining record status = %s, want pending", tr.Entries[2].Status)
	}
}

func TestApplyDecisionReturnKeepsActiveRecord(t *testing.T) {
	tr, err := ApplyDecision(threeLevelLedger(), 0, DecisionApproved)
	if err != nil {
		t.Fatalf("ApplyDecision(A) error = %v", err)
	}
	tr, err = ApplyDecision(tr.Entries, 1, DecisionReturned)
	if err != nil {
		t.Fatalf("ApplyDecision(return) error = %v", err)
	}
	if tr.Status != StatusPending || tr.Active != 1 {
		t.Fatalf("after return status=%s active=%d", tr.Status, tr.Active)
	}
	if tr.Entries[1].Status != RecordPending {
		t.Fatalf("returned record status = %s", tr.Entries[1].Status)
	}
}

func TestApplyDecisionGuards(t *testing.T) {
	entries := threeLevelLedger()
	if _, err := ApplyDecision(entries, 1, DecisionApproved); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("ApplyDecision(out of turn) error = %v", err)
	}

	entries[0].Status = RecordApproved
	if _, err := ApplyDecision(entries, 0, DecisionApproved); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("ApplyDecision(decided) error = %v", err)
	}
	if _, err := ApplyDecision(entries, 7, DecisionApproved); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("ApplyDecision(range) error = %v", err)
	}
}

func TestActiveIndexIsLowestPendingLevel(t *testing.T) {
	entries := []LedgerEntry{
		{Level: LevelMedicalDirector, Status: RecordPending},
		{Level: LevelDepartmentHead, Status: RecordApproved},
		{Level: LevelCommittee, Status: RecordPending},
	}
	if got := ActiveIndex(entries); got != 2 {
		t.Fatalf("ActiveIndex() = %d, want 2", got)
	}
	if got := ActiveIndex(nil); got != -1 {
		t.Fatalf("ActiveIndex(nil) = %d", got)
	}
}

func TestValidateChain(t *testing.T) {
	if err := ValidateChain([]ReviewLevel{LevelCommittee, LevelDepartmentHead}); !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidateChain(unordered) error = %v", err)
	}
	if err := ValidateChain([]ReviewLevel{LevelDepartmentHead, LevelDepartmentHead}); !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidateChain(duplicate) error = %v", err)
	}
}
