package model

type Request struct {
	RequestID   string  `gorm:"column:request_id;type:text;primaryKey"`
	RequesterID string  `gorm:"column:requester_id;type:text;not null;index"`
	Kind        string  `gorm:"column:kind;type:text;not null"`
	Status      string  `gorm:"column:status;type:text;not null;index"`
	CreatedAt   string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt   string  `gorm:"column:updated_at;type:text;not null"`
	SubmittedAt *string `gorm:"column:submitted_at;type:text"`
	CompletedAt *string `gorm:"column:completed_at;type:text"`
}

func (Request) TableName() string {
	return "requests"
}
