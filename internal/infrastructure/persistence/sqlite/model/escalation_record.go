package model

type EscalationRecord struct {
	EscalationID     uint64  `gorm:"column:escalation_id;primaryKey;autoIncrement"`
	RequestID        string  `gorm:"column:request_id;type:text;not null;index"`
	ApprovalRecordID uint64  `gorm:"column:approval_record_id;not null;index"`
	ReceivedAt       string  `gorm:"column:received_at;type:text;not null"`
	Level            int     `gorm:"column:level;not null;default:0"`
	Warned           bool    `gorm:"column:warned;not null;default:0"`
	ClosedAt         *string `gorm:"column:closed_at;type:text;index"`
	Version          int     `gorm:"column:version;not null;default:0"`
}

func (EscalationRecord) TableName() string {
	return "escalation_records"
}
