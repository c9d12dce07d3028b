package ports

import "context"

// Notification is delivered fire-and-forget; callers log failures and move on.
type Notification struct {
	Kind      string
	Recipient string
	RequestID string
	Context   map[string]string
	CreatedAt string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
