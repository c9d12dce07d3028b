package model

type Privilege struct {
	PrivilegeID       string `gorm:"column:privilege_id;type:text;primaryKey"`
	Name              string `gorm:"column:name;type:text;not null"`
	RequiredSpecialty string `gorm:"column:required_specialty;type:text;not null"`
	IsCore            bool   `gorm:"column:is_core;not null;default:0"`
}

func (Privilege) TableName() string {
	return "privileges"
}
