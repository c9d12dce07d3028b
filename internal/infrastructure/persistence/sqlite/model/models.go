package model

// All lists every model for schema migration.
func All() []any {
	return []any{
		&Request{},
		&PrivilegeLine{},
		&ApprovalRecord{},
		&EscalationRecord{},
		&Practitioner{},
		&PractitionerSpecialty{},
		&Privilege{},
		&RequestEvent{},
		&KV{},
	}
}
