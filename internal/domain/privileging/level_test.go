package privileging

import (
	"errors"
	"testing"
)

func TestParseRoleRejectsUnmappedRoles(t *testing.T) {
	role, err := ParseRole(" Department_Head ")
	if err != nil {
		t.Fatalf("ParseRole() error = %v", err)
	}
	if role != RoleDepartmentHead {
		t.Fatalf("ParseRole() = %q", role)
	}

	_, err = ParseRole("chief-of-vibes")
	if !errors.Is(err, ErrUnknownRole) || !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseRole() error = %v, want ErrUnknownRole", err)
	}
}

func TestLevelForRole(t *testing.T) {
	cases := map[Role]ReviewLevel{
		RoleSupervisor:      LevelSupervisor,
		RoleDepartmentHead:  LevelDepartmentHead,
		RoleCommitteeMember: LevelCommittee,
		RoleMedicalDirector: LevelMedicalDirector,
	}
	for role, want := range cases {
		got, ok := LevelForRole(role)
		if !ok || got != want {
			t.Fatalf("LevelForRole(%s) = %v,%v want %v", role, got, ok, want)
		}
		back, ok := RoleForLevel(want)
		if !ok || back != role {
			t.Fatalf("RoleForLevel(%s) = %q,%v", want, back, ok)
		}
	}

	if _, ok := LevelForRole(RolePractitioner); ok {
		t.Fatalf("LevelForRole(practitioner) expected no level")
	}
}

func TestParseReviewLevel(t *testing.T) {
	level, err := ParseReviewLevel("committee")
	if err != nil || level != LevelCommittee {
		t.Fatalf("ParseReviewLevel() = %v, %v", level, err)
	}
	if _, err := ParseReviewLevel("board"); !errors.Is(err, ErrUnknownReviewLevel) {
		t.Fatalf("ParseReviewLevel() error = %v", err)
	}
	if !(LevelSupervisor < LevelDepartmentHead && LevelDepartmentHead < LevelCommittee && LevelCommittee < LevelMedicalDirector) {
		t.Fatalf("review levels are not totally ordered")
	}
}

func TestParseDecision(t *testing.T) {
	if d, err := ParseDecision("Return"); err != nil || d != DecisionReturned {
		t.Fatalf("ParseDecision(Return) = %q, %v", d, err)
	}
	if _, err := ParseDecision("maybe"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseDecision(maybe) error = %v", err)
	}
	if _, err := ParseLineDecision("undecided"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseLineDecision(undecided) error = %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(ErrNotYourTurn); got != "not_your_turn" {
		t.Fatalf("ErrorKind(ErrNotYourTurn) = %q", got)
	}
	if !errors.Is(ErrNotYourTurn, ErrForbidden) {
		t.Fatalf("ErrNotYourTurn should wrap ErrForbidden")
	}
	if got := ErrorKind(ErrUnknownRequestKind); got != "validation_error" {
		t.Fatalf("ErrorKind(ErrUnknownRequestKind) = %q", got)
	}
	if got := ErrorKind(errors.New("boom")); got != "internal" {
		t.Fatalf("ErrorKind(other) = %q", got)
	}
}
