package model

type Practitioner struct {
	PractitionerID   string `gorm:"column:practitioner_id;type:text;primaryKey"`
	Name             string `gorm:"column:name;type:text;not null"`
	Role             string `gorm:"column:role;type:text;not null;index"`
	PractitionerType string `gorm:"column:practitioner_type;type:text;not null"`
	Department       string `gorm:"column:department;type:text;not null;index"`
	PrimarySpecialty string `gorm:"column:primary_specialty;type:text;not null"`
	ManagerID        string `gorm:"column:manager_id;type:text;not null"`
	Active           bool   `gorm:"column:active;not null"`
}

func (Practitioner) TableName() string {
	return "practitioners"
}

// PractitionerSpecialty holds additional specialties beyond the primary one.
type PractitionerSpecialty struct {
	PractitionerID string `gorm:"column:practitioner_id;type:text;not null;primaryKey"`
	Specialty      string `gorm:"column:specialty;type:text;not null;primaryKey"`
}

func (PractitionerSpecialty) TableName() string {
	return "practitioner_specialties"
}
