package privileging

import "strings"

// RequiredLevels returns the ordered review levels for a request. It is total:
// unknown kinds take the stricter committee path. The supervisor level is
// always listed; whether it is staffed depends on the requester's direct
// manager, which the chain builder resolves. The practitioner type does not
// change the levels.
func RequiredLevels(_ PractitionerType, kind RequestKind, specialtyMatch bool) []ReviewLevel {
	levels := make([]ReviewLevel, 0, 4)
	levels = append(levels, LevelSupervisor, LevelDepartmentHead)
	if requiresCommittee(kind, specialtyMatch) {
		levels = append(levels, LevelCommittee)
	}
	return append(levels, LevelMedicalDirector)
}

func requiresCommittee(kind RequestKind, specialtyMatch bool) bool {
	switch kind {
	case KindNew, KindRenewal, KindReapplication:
		return !specialtyMatch
	default:
		return true
	}
}

// SpecialtyMatch is true only when every required specialty is one of the
// requester's specialties. Comparison ignores case and surrounding space.
func SpecialtyMatch(requesterSpecialties []string, requiredSpecialties []string) bool {
	held := make(map[string]struct{}, len(requesterSpecialties))
	for _, s := range requesterSpecialties {
		if key := normalizeSpecialty(s); key != "" {
			held[key] = struct{}{}
		}
	}
	for _, required := range requiredSpecialties {
		key := normalizeSpecialty(required)
		if key == "" {
			continue
		}
		if _, ok := held[key]; !ok {
			return false
		}
	}
	return true
}

func normalizeSpecialty(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
