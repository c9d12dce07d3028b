package privileging

import (
	"context"
	"errors"
	"testing"

	domain "privflow/internal/domain/privileging"
)

func TestBuildChainSpecialtyMatchSkipsCommittee(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	same, err := env.svc.BuildChain(ctx, BuildChainInput{RequesterID: "p-dent", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "new"})
	if err != nil {
		t.Fatalf("BuildChain(orthodontics) error = %v", err)
	}
	if !same.SpecialtyMatch {
		t.Fatalf("BuildChain(orthodontics) SpecialtyMatch = false")
	}
	if same.SkippedSupervisor {
		t.Fatalf("BuildChain(orthodontics) skipped the active supervisor")
	}
	if !equalLevels(same.Levels(), domain.LevelSupervisor, domain.LevelDepartmentHead, domain.LevelMedicalDirector) {
		t.Fatalf("BuildChain(orthodontics) levels = %v", same.Levels())
	}
	if same.Steps[0].ReviewerID != "s-1" || same.Steps[1].ReviewerID != "h-dental" || same.Steps[2].ReviewerID != "md-1" {
		t.Fatalf("BuildChain(orthodontics) steps = %+v", same.Steps)
	}

	other, err := env.svc.BuildChain(ctx, BuildChainInput{RequesterID: "p-dent", PrivilegeIDs: []string{"endo-rct"}, Kind: "new"})
	if err != nil {
		t.Fatalf("BuildChain(endodontics) error = %v", err)
	}
	if other.SpecialtyMatch {
		t.Fatalf("BuildChain(endodontics) SpecialtyMatch = true")
	}
	if !equalLevels(other.Levels(), domain.LevelSupervisor, domain.LevelDepartmentHead, domain.LevelCommittee, domain.LevelMedicalDirector) {
		t.Fatalf("BuildChain(endodontics) levels = %v", other.Levels())
	}
	if other.Steps[2].ReviewerID != "c-1" {
		t.Fatalf("committee reviewer = %q, want lowest identity c-1", other.Steps[2].ReviewerID)
	}
}

func TestBuildChainExpansionAlwaysNeedsCommittee(t *testing.T) {
	env := setupTestEnv(t)

	chain, err := env.svc.BuildChain(context.Background(), BuildChainInput{RequesterID: "p-dent", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "expansion"})
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}
	if !equalLevels(chain.Levels(), domain.LevelSupervisor, domain.LevelDepartmentHead, domain.LevelCommittee, domain.LevelMedicalDirector) {
		t.Fatalf("BuildChain() levels = %v", chain.Levels())
	}
}

func TestBuildChainSupervisorSingleHop(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	resident, err := env.svc.BuildChain(ctx, BuildChainInput{RequesterID: "p-res", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "renewal"})
	if err != nil {
		t.Fatalf("BuildChain(resident) error = %v", err)
	}
	if !equalLevels(resident.Levels(), domain.LevelSupervisor, domain.LevelDepartmentHead, domain.LevelMedicalDirector) {
		t.Fatalf("BuildChain(resident) levels = %v", resident.Levels())
	}
	if resident.Steps[0].ReviewerID != "s-1" {
		t.Fatalf("supervisor = %q, want s-1", resident.Steps[0].ReviewerID)
	}

	nurse, err := env.svc.BuildChain(ctx, BuildChainInput{RequesterID: "p-nurse", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "new"})
	if err != nil {
		t.Fatalf("BuildChain(nurse) error = %v", err)
	}
	if !nurse.SkippedSupervisor {
		t.Fatalf("inactive manager should be skipped")
	}
	if !equalLevels(nurse.Levels(), domain.LevelDepartmentHead, domain.LevelMedicalDirector) {
		t.Fatalf("BuildChain(nurse) levels = %v", nurse.Levels())
	}

	// A dentist without a manager has no supervisor step.
	solo, err := env.svc.BuildChain(ctx, BuildChainInput{RequesterID: "p-solo", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "new"})
	if err != nil {
		t.Fatalf("BuildChain(solo) error = %v", err)
	}
	if !solo.SkippedSupervisor || !equalLevels(solo.Levels(), domain.LevelDepartmentHead, domain.LevelMedicalDirector) {
		t.Fatalf("BuildChain(solo) = %+v", solo)
	}
}

func TestBuildChainErrors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input BuildChainInput
		want  error
	}{
		{
			name:  "missing department head",
			input: BuildChainInput{RequesterID: "p-rad", PrivilegeIDs: []string{"xray-read"}, Kind: "new"},
			want:  domain.ErrNoApproverAvailable,
		},
		{
			name:  "requester is never their own reviewer",
			input: BuildChainInput{RequesterID: "h-dental", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "new"},
			want:  domain.ErrNoApproverAvailable,
		},
		{
			name:  "unknown privilege",
			input: BuildChainInput{RequesterID: "p-dent", PrivilegeIDs: []string{"laser-surgery"}, Kind: "new"},
			want:  domain.ErrValidation,
		},
		{
			name:  "unknown requester",
			input: BuildChainInput{RequesterID: "ghost", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "new"},
			want:  domain.ErrNotFound,
		},
		{
			name:  "unknown kind",
			input: BuildChainInput{RequesterID: "p-dent", PrivilegeIDs: []string{"ortho-brackets"}, Kind: "upgrade"},
			want:  domain.ErrValidation,
		},
		{
			name:  "no privileges",
			input: BuildChainInput{RequesterID: "p-dent", Kind: "new"},
			want:  domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.BuildChain(ctx, tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("BuildChain() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildChainCoreOnly(t *testing.T) {
	env := setupTestEnv(t)

	chain, err := env.svc.BuildChain(context.Background(), BuildChainInput{RequesterID: "p-dent", PrivilegeIDs: []string{"exam-basic"}, Kind: "new"})
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}
	if !chain.CoreOnly || len(chain.Steps) != 0 {
		t.Fatalf("BuildChain() = %+v, want empty core-only chain", chain)
	}
}

func TestBuildChainIgnoresCorePrivilegesForSpecialty(t *testing.T) {
	env := setupTestEnv(t)

	chain, err := env.svc.BuildChain(context.Background(), BuildChainInput{
		RequesterID:  "p-dent",
		PrivilegeIDs: []string{"exam-basic", "ortho-brackets"},
		Kind:         "new",
	})
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}
	if !chain.SpecialtyMatch || len(chain.Steps) != 3 {
		t.Fatalf("BuildChain() = %+v", chain)
	}
}
