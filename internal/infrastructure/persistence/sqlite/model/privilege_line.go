package model

type PrivilegeLine struct {
	LineID      uint64  `gorm:"column:line_id;primaryKey;autoIncrement"`
	RequestID   string  `gorm:"column:request_id;type:text;not null;uniqueIndex:idx_line_request_privilege"`
	PrivilegeID string  `gorm:"column:privilege_id;type:text;not null;uniqueIndex:idx_line_request_privilege"`
	Decision    string  `gorm:"column:decision;type:text;not null;default:undecided"`
	Comment     string  `gorm:"column:comment;type:text;not null"`
	DecidedBy   *string `gorm:"column:decided_by;type:text"`
	CreatedAt   string  `gorm:"column:created_at;type:text;not null"`
}

func (PrivilegeLine) TableName() string {
	return "privilege_lines"
}
