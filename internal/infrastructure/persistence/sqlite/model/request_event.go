package model

type RequestEvent struct {
	EventID   uint64 `gorm:"column:event_id;primaryKey;autoIncrement"`
	RequestID string `gorm:"column:request_id;type:text;not null;index"`
	Actor     string `gorm:"column:actor;type:text;not null"`
	Kind      string `gorm:"column:kind;type:text;not null"`
	Body      string `gorm:"column:body;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (RequestEvent) TableName() string {
	return "request_events"
}
