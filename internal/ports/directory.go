package ports

import (
	"context"
	"errors"

	"privflow/internal/domain/privileging"
)

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPrivilegeNotFound    = errors.New("privilege not found")
)

type Practitioner struct {
	ID               string
	Name             string
	Role             privileging.Role
	Type             privileging.PractitionerType
	Department       string
	PrimarySpecialty string
	Specialties      []string
	ManagerID        string
	Active           bool
}

// AllSpecialties returns the primary specialty followed by the additional ones.
func (p Practitioner) AllSpecialties() []string {
	out := make([]string, 0, len(p.Specialties)+1)
	if p.PrimarySpecialty != "" {
		out = append(out, p.PrimarySpecialty)
	}
	return append(out, p.Specialties...)
}

type Privilege struct {
	ID                string
	Name              string
	RequiredSpecialty string
	Core              bool
}

// ReviewerScope narrows a reviewer lookup. Department applies to
// department-scoped levels only.
type ReviewerScope struct {
	Department string
	ExcludeIDs []string
}

// OrganizationDirectory is read-only to the approval engine.
type OrganizationDirectory interface {
	GetPractitioner(ctx context.Context, id string) (Practitioner, error)
	// GetManager is a single-hop lookup of the direct manager.
	GetManager(ctx context.Context, id string) (Practitioner, bool, error)
	// FindReviewer returns the first active practitioner whose role serves
	// level within scope, ordered by lowest identity.
	FindReviewer(ctx context.Context, level privileging.ReviewLevel, scope ReviewerScope) (Practitioner, bool, error)
	GetPrivileges(ctx context.Context, ids []string) ([]Privilege, error)
}

// DirectoryWriter loads directory data from an external source.
type DirectoryWriter interface {
	UpsertPractitioner(ctx context.Context, p Practitioner) error
	UpsertPrivilege(ctx context.Context, p Privilege) error
}
