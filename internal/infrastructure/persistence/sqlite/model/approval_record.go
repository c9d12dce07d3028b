package model

type ApprovalRecord struct {
	RecordID   uint64  `gorm:"column:record_id;primaryKey;autoIncrement"`
	RequestID  string  `gorm:"column:request_id;type:text;not null;uniqueIndex:idx_approval_request_level"`
	Level      int     `gorm:"column:level;not null;uniqueIndex:idx_approval_request_level"`
	ReviewerID string  `gorm:"column:reviewer_id;type:text;not null;index"`
	Status     string  `gorm:"column:status;type:text;not null;default:pending"`
	Comment    string  `gorm:"column:comment;type:text;not null"`
	DecidedAt  *string `gorm:"column:decided_at;type:text"`
	CreatedAt  string  `gorm:"column:created_at;type:text;not null"`
	Version    int     `gorm:"column:version;not null;default:0"`
}

func (ApprovalRecord) TableName() string {
	return "approval_records"
}
