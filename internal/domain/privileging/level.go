package privileging

import (
	"fmt"
	"strings"
)

// ReviewLevel is a rung of the approval hierarchy. The numeric value is the
// sequencing order.
type ReviewLevel int

const (
	LevelSupervisor      ReviewLevel = 1
	LevelDepartmentHead  ReviewLevel = 2
	LevelCommittee       ReviewLevel = 3
	LevelMedicalDirector ReviewLevel = 4
)

var reviewLevelNames = map[ReviewLevel]string{
	LevelSupervisor:      "supervisor",
	LevelDepartmentHead:  "department_head",
	LevelCommittee:       "committee",
	LevelMedicalDirector: "medical_director",
}

func (l ReviewLevel) String() string {
	if name, ok := reviewLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l ReviewLevel) Valid() bool {
	_, ok := reviewLevelNames[l]
	return ok
}

// Optional reports whether an unresolvable reviewer at this level is skipped
// instead of failing the chain.
func (l ReviewLevel) Optional() bool {
	return l == LevelSupervisor
}

func ParseReviewLevel(raw string) (ReviewLevel, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for level, name := range reviewLevelNames {
		if name == trimmed {
			return level, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReviewLevel, raw)
}

// Role is an organizational role as carried by the directory.
type Role string

const (
	RolePractitioner    Role = "practitioner"
	RoleSupervisor      Role = "supervisor"
	RoleDepartmentHead  Role = "department_head"
	RoleCommitteeMember Role = "committee_member"
	RoleMedicalDirector Role = "medical_director"
	RoleAdministrator   Role = "administrator"
)

// roleLevels is the exhaustive role table. Roles that never review map to 0.
var roleLevels = map[Role]ReviewLevel{
	RolePractitioner:    0,
	RoleAdministrator:   0,
	RoleSupervisor:      LevelSupervisor,
	RoleDepartmentHead:  LevelDepartmentHead,
	RoleCommitteeMember: LevelCommittee,
	RoleMedicalDirector: LevelMedicalDirector,
}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleLevels[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// LevelForRole returns the review level a role serves, if any.
func LevelForRole(role Role) (ReviewLevel, bool) {
	level, ok := roleLevels[role]
	if !ok || level == 0 {
		return 0, false
	}
	return level, true
}

// RoleForLevel is the inverse of LevelForRole.
func RoleForLevel(level ReviewLevel) (Role, bool) {
	for role, l := range roleLevels {
		if l == level && l != 0 {
			return role, true
		}
	}
	return "", false
}
