package privileging

import (
	"reflect"
	"testing"
)

func TestRequiredLevelsSameSpecialty(t *testing.T) {
	got := RequiredLevels(TypeDentist, KindNew, true)
	want := []ReviewLevel{LevelSupervisor, LevelDepartmentHead, LevelMedicalDirector}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredLevels() = %v, want %v", got, want)
	}

	got = RequiredLevels(TypeResident, KindRenewal, true)
	want = []ReviewLevel{LevelSupervisor, LevelDepartmentHead, LevelMedicalDirector}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredLevels(resident) = %v, want %v", got, want)
	}
}

func TestRequiredLevelsAddsCommittee(t *testing.T) {
	got := RequiredLevels(TypeNurse, KindNew, false)
	want := []ReviewLevel{LevelSupervisor, LevelDepartmentHead, LevelCommittee, LevelMedicalDirector}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredLevels(mismatch) = %v, want %v", got, want)
	}

	got = RequiredLevels(TypePhysician, KindExpansion, true)
	want = []ReviewLevel{LevelSupervisor, LevelDepartmentHead, LevelCommittee, LevelMedicalDirector}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredLevels(expansion) = %v, want %v", got, want)
	}
}

func TestRequiredLevelsIsTotal(t *testing.T) {
	got := RequiredLevels(PractitionerType("surgeon-in-training"), RequestKind("mystery"), true)
	want := []ReviewLevel{LevelSupervisor, LevelDepartmentHead, LevelCommittee, LevelMedicalDirector}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequiredLevels(unknown) = %v, want %v", got, want)
	}
	if err := ValidateChain(got); err != nil {
		t.Fatalf("ValidateChain() error = %v", err)
	}
}

func TestSpecialtyMatch(t *testing.T) {
	held := []string{"Orthodontics"}
	if !SpecialtyMatch(held, []string{"orthodontics", " Orthodontics "}) {
		t.Fatalf("SpecialtyMatch() expected true for all-orthodontics request")
	}
	if SpecialtyMatch(held, []string{"Orthodontics", "Endodontics"}) {
		t.Fatalf("SpecialtyMatch() expected false when one privilege needs Endodontics")
	}
	if !SpecialtyMatch([]string{"Orthodontics", "Endodontics"}, []string{"Endodontics"}) {
		t.Fatalf("SpecialtyMatch() expected additional specialty to match")
	}
	if !SpecialtyMatch(held, nil) {
		t.Fatalf("SpecialtyMatch() expected true for no required specialties")
	}
}

func TestSpecialtyMatchDrivesCommittee(t *testing.T) {
	match := SpecialtyMatch([]string{"Orthodontics"}, []string{"Orthodontics"})
	want := []ReviewLevel{LevelSupervisor, LevelDepartmentHead, LevelMedicalDirector}
	if got := RequiredLevels(TypeDentist, KindNew, match); !reflect.DeepEqual(got, want) {
		t.Fatalf("matching chain = %v, want %v", got, want)
	}

	match = SpecialtyMatch([]string{"Orthodontics"}, []string{"Endodontics"})
	got := RequiredLevels(TypeDentist, KindNew, match)
	if len(got) != 4 || got[2] != LevelCommittee {
		t.Fatalf("mismatching chain = %v, want committee", got)
	}
}

func TestRequiredLevelsSupervisorForEveryType(t *testing.T) {
	types := []PractitionerType{TypePhysician, TypeDentist, TypeResident, TypeNurse, TypeAlliedHealth}
	for _, pt := range types {
		got := RequiredLevels(pt, KindRenewal, true)
		if len(got) == 0 || got[0] != LevelSupervisor {
			t.Fatalf("RequiredLevels(%s) = %v, want supervisor first", pt, got)
		}
	}
}
